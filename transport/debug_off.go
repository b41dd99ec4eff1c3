// +build !quicdebug

package transport

// debug is a no-op unless built with -tags quicdebug. Kept as a function
// call (rather than removed) so call sites read the same regardless of
// build configuration.
func debug(format string, values ...interface{}) {}
