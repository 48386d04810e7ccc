package models

import "fmt"

// ErrorKind is the stable error vocabulary shared by the relay server and its
// clients. Raw upstream error bodies never cross the boundary; they are
// collapsed into one of these kinds with a short message.
type ErrorKind string

const (
	ErrKindConfiguration ErrorKind = "configuration" // missing upstream credential
	ErrKindRateLimit     ErrorKind = "rate_limit"    // upstream 429
	ErrKindQuota         ErrorKind = "quota"         // upstream 402
	ErrKindUpstream      ErrorKind = "upstream"      // any other non-success upstream status
	ErrKindTransport     ErrorKind = "transport"     // network failure or malformed stream
	ErrKindPersistence   ErrorKind = "persistence"   // session store read/write failure
	ErrKindOCRPartial    ErrorKind = "ocr_partial"   // per-image extraction failure
)

// RelayError is a classified relay failure. Status is the HTTP status the
// server responds with (429 and 402 mirror upstream, everything else is 500).
type RelayError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return e.Message
}

// NewRelayError builds a RelayError for an upstream HTTP status using the
// fixed user-facing messages.
func NewRelayError(upstreamStatus int) *RelayError {
	switch upstreamStatus {
	case 429:
		return &RelayError{
			Kind:    ErrKindRateLimit,
			Status:  429,
			Message: "Rate limits exceeded, please try again later.",
		}
	case 402:
		return &RelayError{
			Kind:    ErrKindQuota,
			Status:  402,
			Message: "Payment required, please check your upstream account.",
		}
	default:
		return &RelayError{
			Kind:    ErrKindUpstream,
			Status:  500,
			Message: fmt.Sprintf("Upstream API error: %d", upstreamStatus),
		}
	}
}
