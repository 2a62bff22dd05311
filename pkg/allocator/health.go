package allocator

import (
	"context"
	"sort"
	"time"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string            `json:"status"`
	Checks    map[string]bool   `json:"checks"`
	Errors    map[string]string `json:"errors,omitempty"`
	Latest    codec.BlockNumber `json:"latest"`
	Timestamp string            `json:"timestamp"`
}

// Health runs every registered check.
func (a *Allocator) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Checks:    make(map[string]bool, len(a.checks)),
		Latest:    a.Latest(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := a.checks[name](ctx); err != nil {
			out.Checks[name] = false
			if out.Errors == nil {
				out.Errors = make(map[string]string)
			}
			out.Errors[name] = err.Error()
			out.Status = "unhealthy"
			continue
		}
		out.Checks[name] = true
	}
	return out
}
