package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/allocator"
	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/credit"
	"github.com/morezero/coretime-allocator/pkg/inbox"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher routes COMMS requests to allocator methods.
type Dispatcher struct {
	allocator *allocator.Allocator
	metrics   *metrics.Metrics
}

// NewDispatcherParams holds parameters for creating a Dispatcher.
type NewDispatcherParams struct {
	Allocator *allocator.Allocator
	Metrics   *metrics.Metrics
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{allocator: params.Allocator, metrics: params.Metrics}
}

// Dispatch routes a request to the appropriate allocator method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s correlation=%s", logPrefix, req.Method, req.ID, callerCorrelationID(req)))

	resp := d.route(ctx, req)
	result := "ok"
	if !resp.Ok {
		result = resp.Error.Code
	}
	d.metrics.ObserveAPIRequest(req.Method, result)
	return resp
}

func (d *Dispatcher) route(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	switch req.Method {
	case "requestCoreCount":
		return d.handleRequestCoreCount(ctx, req)
	case "requestRevenueInfoAt":
		return d.handleRequestRevenueInfoAt(ctx, req)
	case "creditAccount":
		return d.handleCreditAccount(ctx, req)
	case "assignCore":
		return d.handleAssignCore(ctx, req)
	case "checkNotifyCoreCount":
		return d.handleCheckNotifyCoreCount(ctx, req)
	case "checkNotifyRevenueInfo":
		return d.handleCheckNotifyRevenueInfo(ctx, req)
	case "ensureNotifyCoreCount":
		return d.handleEnsureNotifyCoreCount(ctx, req)
	case "ensureNotifyRevenueInfo":
		return d.handleEnsureNotifyRevenueInfo(ctx, req)
	case "latest":
		return &AllocatorResponse{ID: req.ID, Ok: true, Result: &LatestResult{Block: d.allocator.Latest()}}
	case "redirectCredit":
		return d.handleRedirectCredit(ctx, req)
	case "config":
		return &AllocatorResponse{ID: req.ID, Ok: true, Result: d.allocator.Config()}
	case "health":
		return &AllocatorResponse{ID: req.ID, Ok: true, Result: d.allocator.Health(ctx)}
	default:
		return &AllocatorResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      CodeMethodNotFound,
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

func (d *Dispatcher) handleRequestCoreCount(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input requestCoreCountParams
	if err := decodeParams(req.Params, &input); err != nil || input.Count == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse requestCoreCount params: count is required", false)
	}

	out := d.allocator.RequestCoreCount(ctx, *input.Count)
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: toSendResult(out)}
}

func (d *Dispatcher) handleRequestRevenueInfoAt(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input requestRevenueInfoAtParams
	if err := decodeParams(req.Params, &input); err != nil || input.When == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse requestRevenueInfoAt params: when is required", false)
	}

	out := d.allocator.RequestRevenueInfoAt(ctx, *input.When)
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: toSendResult(out)}
}

func (d *Dispatcher) handleCreditAccount(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input creditAccountParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Failed to parse creditAccount params: %v", err), false)
	}
	if input.Who == nil || input.Amount == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "creditAccount requires who and amount", false)
	}

	out := d.allocator.CreditAccount(ctx, *input.Who, *input.Amount)
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: toSendResult(out)}
}

func (d *Dispatcher) handleAssignCore(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input assignCoreParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Failed to parse assignCore params: %v", err), false)
	}
	if input.Core == nil || input.Begin == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "assignCore requires core and begin", false)
	}
	parts, err := input.toParts()
	if err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, err.Error(), false)
	}

	out := d.allocator.AssignCore(ctx, *input.Core, *input.Begin, parts, input.EndHint)
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: toSendResult(out)}
}

func (d *Dispatcher) handleCheckNotifyCoreCount(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	count, err := d.allocator.CheckNotifyCoreCount(ctx)
	if err != nil {
		return allocatorErrorToResponse(req.ID, err)
	}
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: &CoreCountResult{Count: count}}
}

func (d *Dispatcher) handleCheckNotifyRevenueInfo(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	info, err := d.allocator.CheckNotifyRevenueInfo(ctx)
	if err != nil {
		return allocatorErrorToResponse(req.ID, err)
	}
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: &RevenueInfoResult{Info: info}}
}

func (d *Dispatcher) handleEnsureNotifyCoreCount(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input ensureCoreCountParams
	if err := decodeParams(req.Params, &input); err != nil || input.Count == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse ensureNotifyCoreCount params: count is required", false)
	}

	if err := d.allocator.EnsureNotifyCoreCount(ctx, *input.Count); err != nil {
		return allocatorErrorToResponse(req.ID, err)
	}
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: &emptyResult{}}
}

func (d *Dispatcher) handleEnsureNotifyRevenueInfo(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input ensureRevenueInfoParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Failed to parse ensureNotifyRevenueInfo params: %v", err), false)
	}
	if input.When == nil || input.Amount == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "ensureNotifyRevenueInfo requires when and amount", false)
	}

	info := codec.RevenueInfo{When: *input.When, Amount: *input.Amount}
	if err := d.allocator.EnsureNotifyRevenueInfo(ctx, info); err != nil {
		return allocatorErrorToResponse(req.ID, err)
	}
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: &emptyResult{}}
}

func (d *Dispatcher) handleRedirectCredit(ctx context.Context, req *AllocatorRequest) *AllocatorResponse {
	var input redirectCreditParams
	if err := decodeParams(req.Params, &input); err != nil || input.Amount == nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse redirectCredit params: amount is required", false)
	}

	if err := d.allocator.RedirectCredit(ctx, *input.Amount); err != nil {
		return allocatorErrorToResponse(req.ID, err)
	}
	return &AllocatorResponse{ID: req.ID, Ok: true, Result: &RedirectResult{Pot: d.allocator.Pot(), Amount: *input.Amount}}
}

// --- helpers ---

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(id, code, message string, retryable bool) *AllocatorResponse {
	return &AllocatorResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func allocatorErrorToResponse(id string, err error) *AllocatorResponse {
	switch {
	case errors.Is(err, inbox.ErrTestHooksDisabled):
		return errorResponse(id, CodeFailedPrecondition, err.Error(), false)
	case errors.Is(err, credit.ErrBelowMinimum), errors.Is(err, credit.ErrOverflow):
		return errorResponse(id, CodeCreditRejected, err.Error(), false)
	default:
		return errorResponse(id, CodeInternal, err.Error(), true)
	}
}
