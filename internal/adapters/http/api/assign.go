package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	workerpool "github.com/okian/cohort/internal/adapters/mq/worker"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/plan"
	"github.com/okian/cohort/internal/solve"
)

// AssignHandler handles team assignment requests.
type AssignHandler struct {
	deps Dependencies
}

// NewAssignHandler creates a new assignment handler.
func NewAssignHandler(deps Dependencies) *AssignHandler {
	return &AssignHandler{deps: deps}
}

// HandleAssignTeams handles POST /assign_teams requests. Validation
// failures are rejected with a JSON error before any event; accepted
// requests stream Server-Sent Events until the run ends.
func (h *AssignHandler) HandleAssignTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.assign_teams"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if ct := contentTypeOf(r.Header.Get("Content-Type")); ct != "" && ct != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "bad_request",
			NewKind(op, ErrBadRequest))
		return
	}

	var req assignRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	domainReq, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", WrapKind(op, ErrBadRequest, err))
		return
	}

	streamAssignment(w, r, h.deps, op, domainReq)
}

// streamAssignment dispatches the solve and streams its progress as SSE.
// Shared by the JSON and upload endpoints.
func streamAssignment(w http.ResponseWriter, r *http.Request, deps Dependencies, op string, req model.Request) {
	run, err := deps.Assign(r.Context(), req)
	if err != nil {
		writeSubmitError(w, op, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported",
			NewKind(op, errors.New("response writer does not support flushing")))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range run.Events() {
		writeSSE(w, flusher, "progress", event)
	}

	outcome, err := run.Wait()
	if err != nil {
		writeSSE(w, flusher, "error", map[string]string{"message": terminalMessage(err)})
		return
	}
	writeSSE(w, flusher, "complete", outcome)
}

// writeSubmitError maps synchronous submission failures onto status codes.
func writeSubmitError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrMissingValue):
		writeError(w, http.StatusBadRequest, "validation", NewKind(op, err))
	case errors.Is(err, plan.ErrNoTeams):
		writeError(w, http.StatusBadRequest, "configuration", NewKind(op, err))
	case errors.Is(err, workerpool.ErrBusy), errors.Is(err, workerpool.ErrStopped):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, err))
	}
}

// terminalMessage renders a solve failure for the error event.
func terminalMessage(err error) string {
	if errors.Is(err, solve.ErrNoSolution) {
		return fmt.Sprintf("%v; try relaxing constraints or increasing max_time", err)
	}
	return err.Error()
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
