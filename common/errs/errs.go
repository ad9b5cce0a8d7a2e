package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when the input is malformed or missing. Never retried.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Conflict is returned when a request collides with another request holding the same idempotency key.
	Conflict = ErrorKind("Conflict")

	// ConflictSetting is returned when the stored state doesn't match the running configuration.
	ConflictSetting = ErrorKind("Conflict Setting")

	// UpstreamRejected is returned when the command executor refused a command.
	UpstreamRejected = ErrorKind("Upstream Rejected")

	// Unavailable is returned when a store or a log source is momentarily unreachable.
	Unavailable = ErrorKind("Unavailable")

	Duplicate          = ErrorKind("Duplicate")
	Unsupported        = ErrorKind("Unsupported")
	Timeout            = ErrorKind("Timeout")
	InternalError      = ErrorKind("Internal Error")
	SomethingWentWrong = ErrorKind("Something Went Wrong")
	OverflowUint64     = ErrorKind("overflow uint64")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
