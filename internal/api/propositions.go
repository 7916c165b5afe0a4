package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/goptimize/internal/decisionscope"
)

type updateRequest struct {
	DecisionScopes []string       `json:"decisionScopes"`
	XDM            map[string]any `json:"xdm,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

type getRequest struct {
	DecisionScopes []string `json:"decisionScopes"`
}

type getResponse struct {
	Propositions []map[string]any `json:"propositions"`
}

type trackRequest struct {
	PropositionInteractions map[string]any `json:"propositionInteractions"`
}

type acceptedResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// scopesFromNames builds scopes from names. It reports a field error when the
// list is empty or holds no valid scope.
func scopesFromNames(names []string) ([]decisionscope.DecisionScope, map[string]string) {
	if len(names) == 0 {
		return nil, map[string]string{"decisionScopes": "at least one decision scope is required"}
	}
	scopes := make([]decisionscope.DecisionScope, len(names))
	valid := 0
	for i, n := range names {
		scopes[i] = decisionscope.New(n)
		if scopes[i].IsValid() {
			valid++
		}
	}
	if valid == 0 {
		return nil, map[string]string{"decisionScopes": "no valid decision scope"}
	}
	return scopes, nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	scopes, fields := scopesFromNames(req.DecisionScopes)
	if fields != nil {
		ValidationError(w, r, "invalid update request", fields)
		return
	}

	id, err := s.ext.UpdatePropositions(scopes, req.XDM, req.Data)
	if err != nil {
		ExtensionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{OK: true, ID: id})
}

// handleGet answers from the cache only. The ETag covers the response body so
// a client polling for the same scopes gets 304 until the content changes.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req getRequest
	if !decodeBody(w, r, &req) {
		return
	}
	scopes, fields := scopesFromNames(req.DecisionScopes)
	if fields != nil {
		ValidationError(w, r, "invalid get request", fields)
		return
	}

	found, err := s.ext.GetPropositions(r.Context(), scopes)
	if err != nil {
		ExtensionError(w, r, err)
		return
	}

	resp := getResponse{Propositions: make([]map[string]any, 0, len(found))}
	seen := make(map[decisionscope.DecisionScope]bool, len(scopes))
	for _, sc := range scopes {
		p, ok := found[sc]
		if !ok || seen[sc] {
			continue
		}
		seen[sc] = true
		resp.Propositions = append(resp.Propositions, p.ToEventData())
	}

	body, err := json.Marshal(resp)
	if err != nil {
		InternalError(w, r, "cannot encode propositions")
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.PropositionInteractions) == 0 {
		ValidationError(w, r, "invalid track request", map[string]string{
			"propositionInteractions": "interaction data is required",
		})
		return
	}
	if err := s.ext.TrackPropositions(req.PropositionInteractions); err != nil {
		ExtensionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{OK: true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ext.ClearCachedPropositions(); err != nil {
		ExtensionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{OK: true})
}
