package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/sales"
	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c sales.Customer
	if !s.decode(w, r, &c) {
		return
	}
	respond(s, w, r, s.service.CreateCustomer(c))
}

func (s *Server) handleFindCustomer(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, r, rferrors.NewValidationError("api", "id", id, "query parameter is required"))
		return
	}
	respond(s, w, r, s.service.FindCustomer(id))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var o sales.Order
	if !s.decode(w, r, &o) {
		return
	}
	respond(s, w, r, s.service.CreateOrder(o))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	respond(s, w, r, s.service.Summary())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := s.requestContext(r)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respond subscribes to single for the lifetime of the request and writes
// its value. An empty single is answered with 200 and no body.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, single stream.Single[T]) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	value, ok, err := single.Block(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.requestTimeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, rferrors.NewValidationError("api", "body", nil, fmt.Sprintf("malformed JSON: %v", err)))
		return false
	}
	return true
}
