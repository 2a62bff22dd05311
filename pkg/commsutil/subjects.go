package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectAllocator      = "coretime.allocator.v1"
	SubjectOutcome        = "coretime.allocator.outcome"
	SubjectRelayOutbound  = "xcm.relay.outbound"
	SubjectProviderNotify = "coretime.provider.notify"
	SubjectChainHead      = "coretime.chain.head"
)

// Message headers set on outbound envelopes.
const (
	HeaderCorrelationID = "Coretime-Correlation-Id"
	HeaderCall          = "Coretime-Call"
	HeaderDestination   = "Xcm-Destination"
)

// BuildOutcomeSubject builds the per-call outcome subject <base>.<call>.<index>. The
// broker call index is the last token so <base>.<call>.* follows a call across
// runtime upgrades that renumber it.
func BuildOutcomeSubject(base, call string, index uint8) string {
	return fmt.Sprintf("%s.%s.%d", base, call, index)
}

// BuildFailedOutcomeSubject builds the subject that additionally carries failed handoffs.
func BuildFailedOutcomeSubject(base string) string {
	return base + ".failed"
}
