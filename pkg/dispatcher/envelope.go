// Package dispatcher routes incoming COMMS messages to allocator methods.
package dispatcher

import "encoding/json"

// AllocatorRequest is the JSON envelope for incoming COMMS allocator requests.
type AllocatorRequest struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// AllocatorResponse is the JSON envelope for COMMS allocator responses.
type AllocatorResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// InvocationContext holds context from the caller. CorrelationID is echoed in the
// dispatch log so caller traces can be joined with allocator logs.
type InvocationContext struct {
	CorrelationID string `json:"correlationId,omitempty"`
	DeadlineMs    int    `json:"deadlineMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}

// Error codes returned in ErrorDetail.Code.
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeMethodNotFound     = "METHOD_NOT_FOUND"
	CodeFailedPrecondition = "FAILED_PRECONDITION"
	CodeCreditRejected     = "CREDIT_REJECTED"
	CodeInternal           = "INTERNAL_ERROR"
)

// callerCorrelationID returns the caller's correlation id, or the request id when none was sent.
func callerCorrelationID(req *AllocatorRequest) string {
	if req.Ctx != nil && req.Ctx.CorrelationID != "" {
		return req.Ctx.CorrelationID
	}
	return req.ID
}
