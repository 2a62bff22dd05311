// Package codec encodes broker calls into the SCALE layout of the relay chain dispatch table.
//
// The discriminants below are shared with the relay chain by convention only. Nothing on
// either side checks them at compile time; pkg/schema compares them against the shared
// schema artifact at startup.
package codec

import "fmt"

const (
	// BrokerPalletIndex is the index of the Broker pallet in the relay chain's construct_runtime.
	BrokerPalletIndex uint8 = 74

	CallRequestCoreCount     uint8 = 1
	CallRequestRevenueInfoAt uint8 = 2
	CallCreditAccount        uint8 = 3
	CallAssignCore           uint8 = 4

	// CoreCapacity is the number of parts a single core's assignment list is split into.
	CoreCapacity = 57600
)

// CoreIndex identifies one core on the relay chain.
type CoreIndex = uint16

// BlockNumber is a relay chain block number (checkpoint, begin, end hint).
type BlockNumber = uint32

// PartsOf57600 is a share of one core's capacity.
type PartsOf57600 = uint16

// TaskID identifies a parachain task on the relay chain.
type TaskID = uint32

// AssignmentKind is the discriminant of CoreAssignment.
type AssignmentKind uint8

const (
	AssignmentIdle AssignmentKind = 0
	AssignmentPool AssignmentKind = 1
	AssignmentTask AssignmentKind = 2
)

func (k AssignmentKind) String() string {
	switch k {
	case AssignmentIdle:
		return "idle"
	case AssignmentPool:
		return "pool"
	case AssignmentTask:
		return "task"
	default:
		return "unknown"
	}
}

// CoreAssignment is what a core does for one share of its capacity. Build it with
// Idle, Pool or Task; the zero value is Idle.
type CoreAssignment struct {
	kind AssignmentKind
	task TaskID
}

// Idle returns the idle assignment.
func Idle() CoreAssignment { return CoreAssignment{kind: AssignmentIdle} }

// Pool returns the instantaneous-pool assignment.
func Pool() CoreAssignment { return CoreAssignment{kind: AssignmentPool} }

// Task returns an assignment to the given task.
func Task(id TaskID) CoreAssignment { return CoreAssignment{kind: AssignmentTask, task: id} }

// Kind returns the assignment's variant.
func (a CoreAssignment) Kind() AssignmentKind { return a.kind }

// TaskID returns the task and true for a task assignment.
func (a CoreAssignment) TaskID() (TaskID, bool) {
	return a.task, a.kind == AssignmentTask
}

func (a CoreAssignment) String() string {
	if a.kind == AssignmentTask {
		return fmt.Sprintf("task:%d", a.task)
	}
	return a.kind.String()
}

// AssignmentPart is one (assignment, share) pair of an AssignCore call.
type AssignmentPart struct {
	Assignment CoreAssignment
	Parts      PartsOf57600
}

// AssignmentsTotal sums the shares of an assignment list. The relay chain expects
// CoreCapacity; this package does not enforce it.
func AssignmentsTotal(parts []AssignmentPart) int {
	total := 0
	for _, p := range parts {
		total += int(p.Parts)
	}
	return total
}

// Call is one variant of the broker call enum.
type Call interface {
	// CallIndex is the variant's discriminant in the relay chain's Broker pallet.
	CallIndex() uint8
	// Name is the call's method name, used for logs and metrics.
	Name() string
}

// RequestCoreCount asks the relay chain to change the number of cores available to the broker.
type RequestCoreCount struct {
	Count CoreIndex
}

// RequestRevenueInfoAt asks the relay chain for revenue accounting at a block.
type RequestRevenueInfoAt struct {
	When BlockNumber
}

// CreditAccount asks the relay chain to credit an account with an amount.
type CreditAccount struct {
	Who    AccountID
	Amount Balance
}

// AssignCore binds a core to an assignment list from Begin, optionally until EndHint.
type AssignCore struct {
	Core       CoreIndex
	Begin      BlockNumber
	Assignment []AssignmentPart
	EndHint    *BlockNumber
}

func (RequestCoreCount) CallIndex() uint8     { return CallRequestCoreCount }
func (RequestRevenueInfoAt) CallIndex() uint8 { return CallRequestRevenueInfoAt }
func (CreditAccount) CallIndex() uint8        { return CallCreditAccount }
func (AssignCore) CallIndex() uint8           { return CallAssignCore }

func (RequestCoreCount) Name() string     { return "request_core_count" }
func (RequestRevenueInfoAt) Name() string { return "request_revenue_info_at" }
func (CreditAccount) Name() string        { return "credit_account" }
func (AssignCore) Name() string           { return "assign_core" }
