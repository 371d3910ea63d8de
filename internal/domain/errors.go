package domain

import "fmt"

// Sentinel errors for the domain layer.
var (
	ErrNotFound       = fmt.Errorf("not found")
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrRateLimit      = fmt.Errorf("rate limit exceeded")
	ErrSessionClosed  = fmt.Errorf("session closed")
	ErrTurnInFlight   = fmt.Errorf("a turn is already in flight")
	ErrStreamFailed   = fmt.Errorf("completion stream failed")
	ErrStaleRevision  = fmt.Errorf("stale revision")
	ErrCommentMissing = fmt.Errorf("comment: %w", ErrNotFound)

	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("invalid rpc payload")
)

// PersonaError is the short, in-persona string shown to visitors when a
// turn fails. Deliberately terse and non-technical.
const PersonaError = "something went wrong on my end; try again in a sec?"

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g. "Comments.Reply")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
