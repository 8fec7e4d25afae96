package oracle

import "fmt"

// Kind classifies every error the oracle can return.
type Kind int

const (
	// KindInvalidObservation: the caller's observation is malformed or
	// contradicts the player's own ledger (e.g. South playing a tile
	// it doesn't hold). Recoverable: the session is left untouched.
	KindInvalidObservation Kind = iota
	// KindInconsistent: the observation is individually well-formed
	// but no configuration of opponents' hands can satisfy the
	// accumulated constraints. Recoverable only by rolling back to a
	// prior snapshot.
	KindInconsistent
	// KindTimeout: the configured deadline elapsed before the
	// enumerator or sampler produced a result.
	KindTimeout
	// KindInternalError: a bug or invariant break inside the oracle
	// itself, not attributable to caller input.
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidObservation:
		return "invalid_observation"
	case KindInconsistent:
		return "inconsistent"
	case KindTimeout:
		return "timeout"
	case KindInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its Kind, so API callers can
// switch on Kind without string-matching error text.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is
// an *Error; otherwise it returns KindInternalError.
func KindOf(err error) Kind {
	var oe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			oe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if oe == nil {
		return KindInternalError
	}
	return oe.Kind
}
