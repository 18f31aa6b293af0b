package api

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/roster"
)

// Multipart form fields accepted by the upload endpoint.
const (
	rosterField      = "roster"
	constraintsField = "constraints"
)

// UploadHandler handles roster file uploads.
type UploadHandler struct {
	deps Dependencies
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps Dependencies) *UploadHandler {
	return &UploadHandler{deps: deps}
}

// HandleUpload handles POST /assign_teams/upload requests. The multipart
// form carries a roster file and a constraints file, either CSV or JSON,
// plus the same scalar fields the JSON endpoint accepts. Accepted requests
// stream the same Server-Sent Events as /assign_teams.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.assign_teams_upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(maxRequestBody); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	people, err := h.parseRoster(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", WrapKind(op, ErrBadRequest, err))
		return
	}
	constraints, err := h.parseConstraints(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", WrapKind(op, ErrBadRequest, err))
		return
	}

	req := model.Request{Participants: people, Constraints: constraints}
	if err := parseFormScalars(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Rosters that carry time zones and working time windows get a derived
	// working hour attribute so time-based constraints can reference it.
	if err := roster.AddWorkingHours(req.Participants, time.Now()); err != nil {
		writeError(w, http.StatusBadRequest, "validation", WrapKind(op, ErrBadRequest, err))
		return
	}

	streamAssignment(w, r, h.deps, op, req)
}

func (h *UploadHandler) parseRoster(r *http.Request) ([]model.Participant, error) {
	file, header, err := r.FormFile(rosterField)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if isCSV(header) {
		return roster.ParseParticipantsCSV(file)
	}
	return roster.ParseParticipantsJSON(file)
}

func (h *UploadHandler) parseConstraints(r *http.Request) ([]model.Constraint, error) {
	file, header, err := r.FormFile(constraintsField)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if isCSV(header) {
		return roster.ParseConstraintsCSV(file)
	}
	return roster.ParseConstraintsJSON(file)
}

// isCSV decides the file format from the part's content type, falling back
// to the filename extension.
func isCSV(header *multipart.FileHeader) bool {
	switch contentTypeOf(header.Header.Get("Content-Type")) {
	case "text/csv", "application/csv":
		return true
	case "application/json":
		return false
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".csv")
}

func parseFormScalars(r *http.Request, req *model.Request) error {
	if v := r.FormValue("target_team_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return WrapKind("target_team_size", ErrBadRequest, err)
		}
		req.TargetTeamSize = n
	}
	if v := r.FormValue("less_than_target"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return WrapKind("less_than_target", ErrBadRequest, err)
		}
		req.LessThanTarget = b
	}
	if v := r.FormValue("max_time"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return WrapKind("max_time", ErrBadRequest, err)
		}
		req.MaxTimeSeconds = n
	}
	return nil
}
