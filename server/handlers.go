package server

import (
	"encoding/json"
	"net/http"

	"github.com/loomwork/loom/team"
)

type handlers struct {
	team *team.Team
}

// startRequest is the optional body of POST /v1/team/start: the
// {placeholder} values task descriptions are interpolated against.
type startRequest struct {
	Inputs map[string]string `json:"inputs"`
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.team.Start(req.Inputs); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	if err := h.team.Pause(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	if err := h.team.Resume(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	if err := h.team.Stop(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type setEnvRequest struct {
	Env map[string]string `json:"env"`
}

func (h *handlers) setEnv(w http.ResponseWriter, r *http.Request) {
	var req setEnvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.team.SetEnv(req.Env); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.team.GetCleanedState())
}

func decodeOptionalJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
