package database

// ConnectionError reports a failure to open the database handle. The message
// includes the driver's own reason, which may expose driver details; callers
// serving untrusted clients should log it rather than echo it.
type ConnectionError struct {
	// Descriptor is the redacted descriptor the attempt was made with.
	Descriptor ConnectionDescriptor
	Err        error
}

func (e *ConnectionError) Error() string {
	return "database connection failed: " + e.Err.Error()
}

// Unwrap returns the underlying driver error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *ConnectionError) Cause() error {
	return e.Err
}
