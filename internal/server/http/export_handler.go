package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/export"
	"github.com/harmonia-net/content-node/internal/model"
)

// handleExport serves the primary side of the replication protocol: a
// per-user snapshot map bounded by MaxExportClockRange, plus this node's
// advertised peer addresses. Unknown wallets are simply omitted from the map.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req export.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if len(req.UserKeys) == 0 {
		http.Error(w, "userKeys is required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	users := make(map[string]model.Snapshot, len(req.UserKeys))
	for _, wallet := range req.UserKeys {
		identity, err := s.d.Repo.GetByWallet(ctx, wallet)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			s.d.Log.Error("export: identity lookup", zap.String("wallet", wallet), zap.Error(err))
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		snap, err := s.buildSnapshot(ctx, identity, req.ClockRangeMin)
		if err != nil {
			s.d.Log.Error("export: snapshot build", zap.String("wallet", wallet), zap.Error(err))
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		users[wallet] = *snap
	}

	payload := export.Payload{
		Data: &export.Data{
			CNodeUsers:   users,
			Connectivity: &export.Connectivity{Addresses: s.d.Registry.List()},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.d.Log.Error("export: encode response", zap.Error(err))
	}
}

// buildSnapshot assembles one user's snapshot. The clock-record range is
// capped at MaxExportClockRange; when capped, the snapshot clock is the last
// included record so the requester converges over repeated rounds.
func (s *Server) buildSnapshot(ctx context.Context, identity *model.Identity, fromClock int64) (*model.Snapshot, error) {
	records, err := s.d.Repo.ClockRecords(ctx, identity.ID, fromClock, s.d.MaxExportClockRange)
	if err != nil {
		return nil, err
	}
	snapClock := identity.Clock
	clockEntries := make([]model.ClockEntry, 0, len(records))
	for _, cr := range records {
		clockEntries = append(clockEntries, model.ClockEntry{
			Clock:         cr.Clock,
			OperationType: cr.OperationType,
		})
	}
	if len(records) > 0 {
		snapClock = records[len(records)-1].Clock
	}

	files, err := s.d.Repo.Files(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	fileEntries := make([]model.FileEntry, 0, len(files))
	for _, f := range files {
		fileEntries = append(fileEntries, model.FileEntry{
			Multihash:         f.Multihash,
			StoragePath:       f.StoragePath,
			Type:              f.Type,
			FileName:          f.FileName,
			TrackBlockchainID: f.TrackBlockchainID,
		})
	}

	tracks, err := s.d.Repo.Tracks(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	trackEntries := make([]model.TrackEntry, 0, len(tracks))
	for _, t := range tracks {
		trackEntries = append(trackEntries, model.TrackEntry{
			BlockchainID:      t.BlockchainID,
			MetadataMultihash: t.MetadataMultihash,
		})
	}

	profiles, err := s.d.Repo.Profiles(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	profileEntries := make([]model.ProfileEntry, 0, len(profiles))
	for _, p := range profiles {
		profileEntries = append(profileEntries, model.ProfileEntry{
			DisplayName:       p.DisplayName,
			Bio:               p.Bio,
			MetadataMultihash: p.MetadataMultihash,
		})
	}

	return &model.Snapshot{
		Wallet:            identity.Wallet,
		LastLogin:         identity.LastLogin,
		LatestBlockNumber: identity.LatestBlockNumber,
		Clock:             snapClock,
		ClockRecords:      clockEntries,
		Files:             fileEntries,
		Tracks:            trackEntries,
		ProfileRecords:    profileEntries,
	}, nil
}
