// Package errs holds the sentinel error kinds shared across packages. Wrap a
// kind with github.com/cockroachdb/errors and match it with errors.Is.
package errs

type ErrorKind string

func (e ErrorKind) Error() string {
	return string(e)
}

const (
	// NotFound: a file, dump, journal entry or UTXO set is missing.
	NotFound = ErrorKind("not found")

	// InvalidArgument: a caller passed a malformed value, including data decoded from the wire.
	InvalidArgument = ErrorKind("invalid argument")

	// InvalidConfig: the config file or a flag holds a missing or invalid value.
	InvalidConfig = ErrorKind("invalid config")

	// Unsupported: the value is well formed but this tool can't handle it, e.g. an unknown network.
	Unsupported = ErrorKind("unsupported")

	// Overflow: an integer does not fit its target width.
	Overflow = ErrorKind("integer overflow")

	SomethingWentWrong = ErrorKind("something went wrong")
)

// WithKind returns err tagged with kind. Both errors.Is from the standard
// library and from cockroachdb/errors match kind and every error in err's chain.
func WithKind(err error, kind ErrorKind) error {
	if err == nil {
		return nil
	}
	return &kindError{err: err, kind: kind}
}

type kindError struct {
	err  error
	kind ErrorKind
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.kind
}
