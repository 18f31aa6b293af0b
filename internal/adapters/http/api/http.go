// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Assign validates a request and dispatches the solve; validation and
	// planning errors surface synchronously.
	Assign(ctx context.Context, req model.Request) (*service.Run, error)

	// GetStats exposes service statistics for monitoring.
	GetStats(ctx context.Context) map[string]any
}

// maxRequestBody caps request payload sizes.
const maxRequestBody = 32 << 20 // 32 MiB

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	assignHandler *AssignHandler
	uploadHandler *UploadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		assignHandler: NewAssignHandler(deps),
		uploadHandler: NewUploadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/assign_teams", MetricsMiddleware(s.assignHandler.HandleAssignTeams, "assign_teams"))
	mux.HandleFunc("/assign_teams/upload", MetricsMiddleware(s.uploadHandler.HandleUpload, "assign_teams_upload"))
}

// assignRequest mirrors the request schema for POST /assign_teams.
type assignRequest struct {
	Participants   []map[string]any    `json:"participants"`
	Constraints    []constraintPayload `json:"constraints"`
	TargetTeamSize int                 `json:"target_team_size"`
	LessThanTarget bool                `json:"less_than_target"`
	MaxTime        int                 `json:"max_time"`
}

type constraintPayload struct {
	Attribute string  `json:"attribute"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
}

// toModel converts the wire request into a domain request. Participant and
// constraint type validation happens in the domain layer.
func (a assignRequest) toModel() (model.Request, error) {
	people := make([]model.Participant, 0, len(a.Participants))
	for i, raw := range a.Participants {
		p, err := model.ParseParticipant(raw, strconv.Itoa(i))
		if err != nil {
			return model.Request{}, fmt.Errorf("participant %d: %w", i, err)
		}
		people = append(people, p)
	}

	constraints := make([]model.Constraint, 0, len(a.Constraints))
	for i, c := range a.Constraints {
		ct, err := model.ParseConstraintType(c.Type)
		if err != nil {
			return model.Request{}, fmt.Errorf("constraint %d: %w", i, err)
		}
		constraints = append(constraints, model.Constraint{
			Attribute: c.Attribute,
			Type:      ct,
			Weight:    c.Weight,
		})
	}

	return model.Request{
		Participants:   people,
		Constraints:    constraints,
		TargetTeamSize: a.TargetTeamSize,
		LessThanTarget: a.LessThanTarget,
		MaxTimeSeconds: a.MaxTime,
	}, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// contentTypeOf strips parameters from a Content-Type header value.
func contentTypeOf(header string) string {
	ct, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(strings.ToLower(ct))
}
