// Package httpserver exposes the node's internal HTTP API: the export
// endpoint serving primaries' counterpart, the sync trigger invoked by the
// external scheduler, and peer registration.
package httpserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harmonia-net/content-node/internal/peering"
	"github.com/harmonia-net/content-node/internal/repository"
)

// SyncRunner runs one sync invocation against a primary.
type SyncRunner interface {
	Sync(ctx context.Context, wallets []string, primary string, blockNumber int64) error
}

// Deps collects the server's injected collaborators.
type Deps struct {
	Repo                repository.SyncRepository
	Syncer              SyncRunner
	Registry            *peering.Registry
	SelfEndpoint        string
	NetworkKey          []byte // empty disables bearer auth
	MaxExportClockRange int
	Log                 *zap.Logger
}

// Server is the node's internal HTTP API.
type Server struct {
	d      Deps
	router *mux.Router
}

// New constructs the server and its routes.
func New(d Deps) *Server {
	s := &Server{d: d, router: mux.NewRouter()}

	s.router.Use(Recover(d.Log), Logging(d.Log))
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	internal := s.router.PathPrefix("/internal").Subrouter()
	internal.Use(Auth(d.NetworkKey))
	internal.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	internal.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	internal.HandleFunc("/peers", s.handlePeers).Methods(http.MethodPost)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
