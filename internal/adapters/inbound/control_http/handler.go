package control_http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/core/resolver"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

const maxBodyBytes = 1 << 16

// Core is the part of the resolver the editor talks to.
type Core interface {
	Sliders() []resolver.Slider
	SetLimit(name string, value float64) (limits.Edit, error)
	State() resolver.State
	Apply(p resolver.Policy) error
	Dump(w io.Writer) error
	Suggest(name string) (string, bool)
}

// Handler is the editor-facing HTTP surface.
//
// Routes:
//
//	GET  /sliders -> editable categories
//	POST /limit   -> {"name": "...", "value": 0.3}, rate limited
//	GET  /policy  -> current phase and policy
//	POST /policy  -> {"policy": "original|custom|disabled"}
//	GET  /dump    -> plain-text report of every live definition
//	GET  /health  -> 200 OK
type Handler struct {
	core    Core
	limiter *rate.Limiter
}

// NewHandler allows editsPerSec limit edits per second, bursting to the same count.
func NewHandler(core Core, editsPerSec float64) *Handler {
	if editsPerSec <= 0 {
		editsPerSec = 1
	}
	return &Handler{
		core:    core,
		limiter: rate.NewLimiter(rate.Limit(editsPerSec), max(1, int(editsPerSec))),
	}
}

// RegisterRoutes wires HTTP routes onto the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /sliders", h.sliders)
	mux.HandleFunc("POST /limit", h.setLimit)
	mux.HandleFunc("GET /policy", h.policy)
	mux.HandleFunc("POST /policy", h.setPolicy)
	mux.HandleFunc("GET /dump", h.dump)
	mux.HandleFunc("GET /health", h.healthCheck)
}

type limitRequest struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

type limitResponse struct {
	Name     string   `json:"name"`
	Value    float64  `json:"value"`
	Previous *float64 `json:"previous,omitempty"`
	Changed  bool     `json:"changed"`
}

type policyRequest struct {
	Policy string `json:"policy"`
}

type stateResponse struct {
	Phase  string `json:"phase"`
	Policy string `json:"policy"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (h *Handler) sliders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Sliders())
}

func (h *Handler) setLimit(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		telemetry.Metrics.RejectedEdits.Inc()
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many edits"})
		return
	}

	var req limitRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Name == "" || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and value are required"})
		return
	}

	edit, err := h.core.SetLimit(req.Name, *req.Value)
	switch {
	case errors.Is(err, limits.ErrUnknownName):
		resp := errorResponse{Error: err.Error()}
		if s, ok := h.core.Suggest(req.Name); ok {
			resp.Suggestion = s
		}
		writeJSON(w, http.StatusNotFound, resp)
		return
	case errors.Is(err, limits.ErrIgnoredName):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, limits.ErrNonFinite):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		// Stored, but re-applying the active policy failed.
		telemetry.Errorf("control: apply after edit of %q: %v", req.Name, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, limitResponse{
		Name:     edit.Name,
		Value:    edit.Value,
		Previous: edit.Previous,
		Changed:  edit.Changed,
	})
}

func (h *Handler) policy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toState(h.core.State()))
}

func (h *Handler) setPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	p, err := resolver.ParsePolicy(req.Policy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.core.Apply(p); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toState(h.core.State()))
}

func (h *Handler) dump(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.core.Dump(w); err != nil {
		telemetry.Warnf("control: dump failed: %v", err)
	}
}

func (h *Handler) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","adapter":"control_http"}`))
}

func toState(st resolver.State) stateResponse {
	return stateResponse{Phase: st.Phase.String(), Policy: st.Policy.String()}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		telemetry.Warnf("control: encode response: %v", err)
	}
}
