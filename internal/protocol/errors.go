package protocol

import "fmt"

// DecodeKind classifies why a datagram could not be decoded.
type DecodeKind int

const (
	// KindEmpty indicates a zero-length payload.
	KindEmpty DecodeKind = iota

	// KindEcho indicates the payload was our own probe looped back on the
	// shared discovery port.
	KindEcho

	// KindMalformed indicates the payload did not match any known response
	// format (wrong field arity, truncated record, non-text bytes).
	KindMalformed
)

// String returns a short name for the decode kind.
func (k DecodeKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindEcho:
		return "echo"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// DecodeError describes a datagram that was received but could not be
// turned into a device response. It is always recoverable: the scan that
// encountered it keeps listening.
type DecodeError struct {
	Kind   DecodeKind
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("decode %s response", e.Kind)
	}
	return fmt.Sprintf("decode %s response: %s", e.Kind, e.Reason)
}
