package dispatcher

import (
	"encoding/json"
	"testing"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

const dispatcherTestPrefix = "dispatcher:dispatcher_test"

func TestAllocatorRequest_Unmarshal(t *testing.T) {
	raw := `{
		"id": "req-1",
		"method": "assignCore",
		"params": {"core": 3, "begin": 100, "assignment": [{"kind": "task", "task": 2000, "parts": 57600}]},
		"ctx": {"correlationId": "c-1", "timeoutMs": 500}
	}`

	var req AllocatorRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("%s - failed to unmarshal: %v", dispatcherTestPrefix, err)
	}

	if req.ID != "req-1" {
		t.Errorf("%s - expected id req-1, got %s", dispatcherTestPrefix, req.ID)
	}
	if req.Method != "assignCore" {
		t.Errorf("%s - expected method assignCore, got %s", dispatcherTestPrefix, req.Method)
	}
	if req.Ctx == nil {
		t.Fatalf("%s - expected ctx, got nil", dispatcherTestPrefix)
	}
	if req.Ctx.CorrelationID != "c-1" || req.Ctx.TimeoutMs != 500 {
		t.Errorf("%s - unexpected ctx %+v", dispatcherTestPrefix, req.Ctx)
	}

	var params assignCoreParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("%s - failed to unmarshal params: %v", dispatcherTestPrefix, err)
	}
	if params.EndHint != nil || len(params.Assignment) != 1 || params.Assignment[0].Task == nil || *params.Assignment[0].Task != 2000 {
		t.Errorf("%s - unexpected params %+v", dispatcherTestPrefix, params)
	}
}

func TestAllocatorResponse_Marshal(t *testing.T) {
	resp := &AllocatorResponse{
		ID: "req-1",
		Ok: true,
		Result: &SendResult{
			CorrelationID: "c-1",
			Call:          "request_core_count",
			Status:        "sent",
			Bytes:         17,
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("%s - failed to marshal: %v", dispatcherTestPrefix, err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("%s - failed to unmarshal response: %v", dispatcherTestPrefix, err)
	}

	if decoded["ok"] != true {
		t.Errorf("%s - expected ok=true, got %v", dispatcherTestPrefix, decoded["ok"])
	}
	result, ok := decoded["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("%s - expected result object, got %v", dispatcherTestPrefix, decoded["result"])
	}
	if result["status"] != "sent" || result["bytes"] != float64(17) {
		t.Errorf("%s - unexpected result %v", dispatcherTestPrefix, result)
	}
	if _, present := result["error"]; present {
		t.Errorf("%s - error should be omitted on success", dispatcherTestPrefix)
	}
}

func TestAllocatorResponse_Error(t *testing.T) {
	resp := errorResponse("req-2", CodeFailedPrecondition, "test hooks are disabled", false)

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("%s - failed to marshal: %v", dispatcherTestPrefix, err)
	}

	var decoded AllocatorResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("%s - failed to unmarshal: %v", dispatcherTestPrefix, err)
	}

	if decoded.Ok {
		t.Errorf("%s - expected ok=false", dispatcherTestPrefix)
	}
	if decoded.Error == nil || decoded.Error.Code != CodeFailedPrecondition {
		t.Errorf("%s - expected FAILED_PRECONDITION, got %+v", dispatcherTestPrefix, decoded.Error)
	}
	if decoded.Result != nil {
		t.Errorf("%s - result should be omitted on error, got %v", dispatcherTestPrefix, decoded.Result)
	}
}

func TestAssignCoreParams_ToParts(t *testing.T) {
	task := uint32(7)
	params := assignCoreParams{Assignment: []assignmentParam{
		{Kind: "idle", Parts: 100},
		{Kind: "pool", Parts: 200},
		{Kind: "task", Task: &task, Parts: 57300},
	}}
	parts, err := params.toParts()
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", dispatcherTestPrefix, err)
	}
	if len(parts) != 3 || parts[1].Parts != 200 {
		t.Fatalf("%s - unexpected parts %+v", dispatcherTestPrefix, parts)
	}
	if id, ok := parts[2].Assignment.TaskID(); !ok || id != 7 {
		t.Errorf("%s - parts[2] = %s, want task:7", dispatcherTestPrefix, parts[2].Assignment)
	}
	if parts[1].Assignment != codec.Pool() {
		t.Errorf("%s - parts[1] = %s, want pool", dispatcherTestPrefix, parts[1].Assignment)
	}

	rejected := map[string][]assignmentParam{
		"unknown kind":   {{Kind: "lease", Parts: 1}},
		"task with idle": {{Kind: "idle", Task: &task, Parts: 1}},
		"task with pool": {{Kind: "pool", Task: &task, Parts: 1}},
		"task missing":   {{Kind: "task", Parts: 1}},
	}
	for name, assignment := range rejected {
		bad := assignCoreParams{Assignment: assignment}
		if _, err := bad.toParts(); err == nil {
			t.Errorf("%s - %s: expected error", dispatcherTestPrefix, name)
		}
	}
}

func TestCallerCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		req  *AllocatorRequest
		want string
	}{
		{name: "caller id echoed", req: &AllocatorRequest{ID: "req-1", Ctx: &InvocationContext{CorrelationID: "c-9"}}, want: "c-9"},
		{name: "empty ctx falls back", req: &AllocatorRequest{ID: "req-1", Ctx: &InvocationContext{}}, want: "req-1"},
		{name: "no ctx falls back", req: &AllocatorRequest{ID: "req-2"}, want: "req-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := callerCorrelationID(tt.req); got != tt.want {
				t.Errorf("%s - callerCorrelationID = %q, want %q", dispatcherTestPrefix, got, tt.want)
			}
		})
	}
}
