package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/coretime-allocator/pkg/dispatcher"
)

// newRequestHandler decodes allocator requests, dispatches them and responds.
func newRequestHandler(ctx context.Context, disp *dispatcher.Dispatcher, timeout time.Duration) comms.MsgHandler {
	return func(msg *comms.Msg) {
		var req dispatcher.AllocatorRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			resp := &dispatcher.AllocatorResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			}
			data, _ := json.Marshal(resp)
			msg.Respond(data)
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(&req, timeout))
		defer cancel()

		resp := disp.Dispatch(reqCtx, &req)

		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	}
}

// requestTimeout honors a client deadline when it is shorter than the server's.
func requestTimeout(req *dispatcher.AllocatorRequest, limit time.Duration) time.Duration {
	if req.Ctx == nil {
		return limit
	}
	ms := req.Ctx.DeadlineMs
	if ms <= 0 {
		ms = req.Ctx.TimeoutMs
	}
	if ms > 0 && time.Duration(ms)*time.Millisecond < limit {
		return time.Duration(ms) * time.Millisecond
	}
	return limit
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/connection", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"natsUrl": s.cfg.COMMSURL,
			"subject": s.cfg.AllocatorSubject,
		})
	})
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.alloc.Health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	}
}
