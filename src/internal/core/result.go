// FILE: scribelog/src/internal/core/result.go
package core

import "fmt"

// Scribe result code returned per batch, never per entry
type ResultCode int32

const (
	OK       ResultCode = 0
	TryLater ResultCode = 1
	// NoResult accompanies an error; it is never written to the wire
	NoResult ResultCode = -1
)

func (r ResultCode) String() string {
	switch r {
	case OK:
		return "OK"
	case TryLater:
		return "TRY_LATER"
	case NoResult:
		return "NO_RESULT"
	default:
		return fmt.Sprintf("ResultCode(%d)", int32(r))
	}
}

// Outcome of offering a batch of messages to the process buffer
type OfferResult int

const (
	OfferAccepted OfferResult = iota
	OfferOverCapacity
	OfferProcessingDisabled
)

func (o OfferResult) String() string {
	switch o {
	case OfferAccepted:
		return "accepted"
	case OfferOverCapacity:
		return "over_capacity"
	case OfferProcessingDisabled:
		return "processing_disabled"
	default:
		return "unknown"
	}
}
