package assert

import "github.com/olivierh59500/trampoline-go/oerror"

// IsTrue panics with a formatted error if ok is false. It guards preconditions whose violation
// means the caller is broken, not that the input was bad.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
