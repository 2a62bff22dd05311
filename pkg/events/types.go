// Package events defines outcome events for outbound relay chain messages and their publishers.
package events

// Outcome statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// DispatchOutcomeEvent is emitted after every attempt to hand an envelope to the transport.
// There is no delivery acknowledgement; Status only reflects the local handoff.
type DispatchOutcomeEvent struct {
	CorrelationID string `json:"correlationId"`
	Call          string `json:"call"`
	CallIndex     uint8  `json:"callIndex"`
	Destination   string `json:"destination"`
	Bytes         int    `json:"bytes"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	Timestamp     string `json:"timestamp"`
}
