package dispatcher

import (
	"fmt"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/messenger"
)

type requestCoreCountParams struct {
	Count *uint16 `json:"count"`
}

type requestRevenueInfoAtParams struct {
	When *uint32 `json:"when"`
}

type creditAccountParams struct {
	Who    *codec.AccountID `json:"who"`
	Amount *codec.Balance   `json:"amount"`
}

type assignmentParam struct {
	Kind  string  `json:"kind"`
	Task  *uint32 `json:"task,omitempty"`
	Parts uint16  `json:"parts"`
}

type assignCoreParams struct {
	Core       *uint16           `json:"core"`
	Begin      *uint32           `json:"begin"`
	Assignment []assignmentParam `json:"assignment"`
	EndHint    *uint32           `json:"endHint,omitempty"`
}

type ensureCoreCountParams struct {
	Count *uint16 `json:"count"`
}

type ensureRevenueInfoParams struct {
	When   *uint32        `json:"when"`
	Amount *codec.Balance `json:"amount"`
}

type redirectCreditParams struct {
	Amount *codec.Balance `json:"amount"`
}

// SendResult is the result of the four send methods. A failed handoff is still a
// successful request: Status says what the transport did.
type SendResult struct {
	CorrelationID string `json:"correlationId"`
	Call          string `json:"call"`
	Status        string `json:"status"`
	Bytes         int    `json:"bytes"`
	Error         string `json:"error,omitempty"`
}

// CoreCountResult is the result of checkNotifyCoreCount; Count is null when nothing is pending.
type CoreCountResult struct {
	Count *uint16 `json:"count"`
}

// RevenueInfoResult is the result of checkNotifyRevenueInfo; Info is null when nothing is pending.
type RevenueInfoResult struct {
	Info *codec.RevenueInfo `json:"info"`
}

// LatestResult is the result of latest.
type LatestResult struct {
	Block uint32 `json:"block"`
}

// RedirectResult is the result of redirectCredit.
type RedirectResult struct {
	Pot    codec.AccountID `json:"pot"`
	Amount codec.Balance   `json:"amount"`
}

type emptyResult struct{}

func toSendResult(out *messenger.Outcome) *SendResult {
	res := &SendResult{
		CorrelationID: out.ID,
		Call:          out.Call,
		Status:        out.Status,
		Bytes:         out.Bytes,
	}
	if out.Err != nil {
		res.Error = out.Err.Error()
	}
	return res
}

func (p assignCoreParams) toParts() ([]codec.AssignmentPart, error) {
	parts := make([]codec.AssignmentPart, 0, len(p.Assignment))
	for i, a := range p.Assignment {
		var assignment codec.CoreAssignment
		if a.Task != nil && a.Kind != "task" {
			return nil, fmt.Errorf("assignment[%d]: task is only allowed with kind \"task\"", i)
		}
		switch a.Kind {
		case "idle":
			assignment = codec.Idle()
		case "pool":
			assignment = codec.Pool()
		case "task":
			if a.Task == nil {
				return nil, fmt.Errorf("assignment[%d]: kind \"task\" requires task", i)
			}
			assignment = codec.Task(*a.Task)
		default:
			return nil, fmt.Errorf("assignment[%d]: unknown kind %q", i, a.Kind)
		}
		parts = append(parts, codec.AssignmentPart{Assignment: assignment, Parts: a.Parts})
	}
	return parts, nil
}
