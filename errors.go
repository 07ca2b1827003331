package homa

import "fmt"

// ErrorCode enumerates the failure kinds of §7. It follows the same
// shape as quic-go's internal/qerr.ErrorCode: a small integer with a
// String()/Error() pair, rather than a family of sentinel errors.
type ErrorCode uint8

const (
	// NoError is never actually returned; it exists so the zero value
	// of ErrorCode is not itself a (silently wrong) error kind.
	NoError ErrorCode = iota
	// ErrInvalid means a message's length exceeds MaxMessageLength.
	ErrInvalid
	// ErrNoMemory means the packet-buffer allocator failed.
	ErrNoMemory
	// ErrNoBuffers means the control-packet allocator failed.
	ErrNoBuffers
	// ErrFault means copying user payload into a packet buffer failed.
	ErrFault
)

func (e ErrorCode) String() string {
	switch e {
	case ErrInvalid:
		return "INVALID"
	case ErrNoMemory:
		return "NO_MEMORY"
	case ErrNoBuffers:
		return "NO_BUFFERS"
	case ErrFault:
		return "FAULT"
	default:
		return "NO_ERROR"
	}
}

// Error implements the error interface so ErrorCode can be returned
// directly from InitOutboundMessage/Homa.SendControl.
func (e ErrorCode) Error() string { return e.String() }

// xmitError wraps an errno-like error returned by the IP transmit
// primitive (§7, "transport errno from IP submission"), so callers
// can tell a transport failure from one of the ErrorCode kinds above
// with errors.As.
type xmitError struct {
	err error
}

func (e *xmitError) Error() string { return fmt.Sprintf("ip transmit: %v", e.err) }
func (e *xmitError) Unwrap() error { return e.err }
