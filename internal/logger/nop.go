package logger

// NopLogger discards everything. Meant for tests.
type NopLogger struct{}

func NewNop() *NopLogger { return &NopLogger{} }

func (l *NopLogger) With(args ...interface{}) Logger { return l }

func (l *NopLogger) Debugf(template string, args ...interface{}) {}
func (l *NopLogger) Infof(template string, args ...interface{})  {}
func (l *NopLogger) Warnf(template string, args ...interface{})  {}
func (l *NopLogger) Errorf(template string, args ...interface{}) {}
func (l *NopLogger) Fatalf(template string, args ...interface{}) {}

func (l *NopLogger) Sync() error { return nil }
