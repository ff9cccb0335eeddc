// Package httpx holds the JSON error envelope shared by handlers and middleware.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopfront/api/internal/platform/requestctx"
)

const (
	maxCodeLen      = 80
	maxMessageLen   = 512
	maxRequestIDLen = 80
)

// Error is the envelope every failed request receives:
// {"error","message","status","request_id","trace_id"}.
type Error struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewError builds an envelope. Statuses outside the 4xx/5xx range become 500.
func NewError(code, message string, status int) Error {
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    singleLine(code, maxCodeLen),
		Message: singleLine(message, maxMessageLen),
		Status:  status,
	}
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WriteError stamps the request and trace IDs from ctx onto err and writes it.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	err.RequestID = singleLine(middleware.GetReqID(ctx), maxRequestIDLen)
	err.TraceID = requestctx.TraceID(ctx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}

func singleLine(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
