package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harmonia-net/content-node/internal/errs"
)

type syncRequest struct {
	Wallets         []string `json:"wallets"`
	PrimaryEndpoint string   `json:"primaryEndpoint"`
	BlockNumber     int64    `json:"blockNumber,omitempty"`
}

// handleSync is the programmatic surface the external scheduler invokes to
// start one sync round against a primary.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if len(req.Wallets) == 0 || req.PrimaryEndpoint == "" {
		http.Error(w, "wallets and primaryEndpoint are required", http.StatusBadRequest)
		return
	}

	err := s.d.Syncer.Sync(r.Context(), req.Wallets, req.PrimaryEndpoint, req.BlockNumber)
	switch {
	case errors.Is(err, errs.ErrSyncInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

type peerRequest struct {
	Endpoint string `json:"endpoint"`
}

// handlePeers registers a peer that announced itself to this node.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	var req peerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" {
		http.Error(w, "endpoint is required", http.StatusBadRequest)
		return
	}
	s.d.Registry.Add(req.Endpoint)
	w.WriteHeader(http.StatusOK)
}
