package logger

// nopLogger discards everything. Meant for tests and tools that do not
// want log output.
type nopLogger struct{}

func NewNopLogger() ILogger {
	return nopLogger{}
}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
