package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seoulquant/autotrader/internal/broker"
	"github.com/seoulquant/autotrader/internal/broker/sim"
	"github.com/seoulquant/autotrader/internal/config"
	"github.com/seoulquant/autotrader/internal/discovery"
	"github.com/seoulquant/autotrader/internal/events"
	"github.com/seoulquant/autotrader/internal/journal"
	"github.com/seoulquant/autotrader/internal/ledger"
	"github.com/seoulquant/autotrader/internal/logger"
	"github.com/seoulquant/autotrader/internal/manager"
	"github.com/seoulquant/autotrader/internal/notify"
	"github.com/seoulquant/autotrader/internal/postgres"
	"github.com/seoulquant/autotrader/internal/server"
	"github.com/seoulquant/autotrader/internal/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading loop",
	Long: `Start the full trading loop: the watchlist poller, the realtime event
handlers, the discovery pipeline and the telemetry server.

With sandbox: true in the config the bot trades against the in-process paper
broker instead of a live brokerage connection.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	level := logger.Info
	if debug {
		level = logger.Debug
	}
	zapLogger, loggerSync, err := logger.NewZapLogger(level)
	if err != nil {
		return err
	}
	defer loggerSync()

	if err := godotenv.Load(); err != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadAppConfig(cfgPath)
	if err != nil {
		zapLogger.Errorf("%s: can't load cfg", err)
		return err
	}

	db, err := postgres.NewDB(postgres.NewConfigFromEnv().Setup())
	if err != nil {
		zapLogger.Errorf("%s: can't connect to db", err)
		return err
	}
	defer db.Close()

	if err := postgres.InitSchema(db); err != nil {
		zapLogger.Errorf("%s: can't init schema", err)
		return err
	}

	var brk broker.Broker
	if cfg.Sandbox {
		zapLogger.Infof("sandbox mode, trading against the paper broker")
		brk = sim.NewSimulator()
	} else {
		// the live brokerage binding ships separately and registers itself here
		return errors.New("live broker binding not configured, set sandbox: true")
	}
	gate := broker.NewGate(brk, cfg.Broker.RequestSpacing, cfg.Broker.RequestTimeout)
	if err := gate.Login(ctx); err != nil {
		zapLogger.Errorf("%s: can't log in to broker", err)
		return err
	}

	ldg := ledger.NewLedger(cfg.UserID, ledger.NewPostgresStore(db), zapLogger)
	if err := ldg.Restore(ctx); err != nil {
		zapLogger.Errorf("%s: can't restore ledger", err)
		return err
	}

	jnl := journal.NewJournal(db)
	hub := events.NewHub()

	strat := strategy.NewBreakout(cfg.Strategy.K, cfg.Strategy.StopLoss, cfg.Strategy.TakeProfit, gate, zapLogger)
	strat.SetUniverse(ctx, cfg.Watchlist)

	mgr := manager.NewManager(cfg, ldg, jnl, strat, gate, hub, zapLogger)
	disc := discovery.NewDiscovery(cfg.Discovery, gate, strat, mgr, hub, zapLogger)

	mux := server.NewMux(events.NewWSHandler(hub, zapLogger), mgr, zapLogger)
	srv := server.NewHTTPServer(ctx, cfg.Telemetry.Port, mux)

	if cfg.Telemetry.WebhookURL != "" {
		notifier := notify.NewWebhookNotifier(cfg.Telemetry.WebhookURL, zapLogger)
		defer notifier.Close()
		go notifier.Run(ctx, hub)
	}

	errCh := make(chan error, 3)
	go func() { errCh <- mgr.Run(ctx) }()
	go func() { errCh <- disc.Run(ctx) }()
	go func() {
		if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	zapLogger.Infof("autotrader started for user %s, account %s", cfg.UserID, cfg.Account)

	err = <-errCh
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Errorf("%s: trading loop stopped", err)
		return err
	}

	return nil
}
