package core

// Logger is implemented by the logging service.
// args may hold an error, a map[string]interface{} of extras, or the acting Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies who triggered a logged event.
type Person struct {
	ID       string
	Username string
	Email    string
}
