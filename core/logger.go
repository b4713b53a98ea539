package core

// Logger is any service that can log events.
// args are expected to be: error | map[string]interface{} | account.Account (the person to attach).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
