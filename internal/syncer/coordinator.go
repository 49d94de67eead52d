package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harmonia-net/content-node/internal/directory"
	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/export"
	"github.com/harmonia-net/content-node/internal/ledger"
	"github.com/harmonia-net/content-node/internal/locker"
	"github.com/harmonia-net/content-node/internal/model"
	"github.com/harmonia-net/content-node/internal/repository"
)

// Exporter pulls a bounded-range export from a primary.
type Exporter interface {
	Export(ctx context.Context, primary string, userKeys []string, clockRangeMin int64) (*export.Payload, error)
}

// PeerEstablisher attempts best-effort direct peer links.
type PeerEstablisher interface {
	EstablishPeers(ctx context.Context, addrs []string) error
}

// Deps collects the coordinator's injected collaborators.
type Deps struct {
	Locks        locker.Locker
	Exporter     Exporter
	Directory    directory.Resolver
	Reconciler   IdentityReconciler
	Repo         repository.SyncRepository
	Peers        PeerEstablisher
	Outcomes     ledger.Ledger
	SelfEndpoint string
	Log          *zap.Logger
}

// Coordinator runs one sync invocation to completion: locking, export,
// sequential per-identity reconciliation, corrupted-state recovery, cleanup
// and outcome recording. Convergence over long histories is reached by the
// external scheduler re-invoking Sync, not by looping here.
type Coordinator struct {
	d Deps
}

// NewCoordinator constructs a Coordinator from explicit dependencies.
func NewCoordinator(d Deps) *Coordinator {
	return &Coordinator{d: d}
}

// Sync converges local state for the given wallets against the primary.
//
// Locking is all-or-nothing: if any wallet is already locked the whole call
// fails with errs.ErrSyncInProgress before any state is touched. Identities
// are then reconciled sequentially in request order; the first fatal error
// stops the loop, and identities already committed stay committed.
func (c *Coordinator) Sync(ctx context.Context, wallets []string, primary string, blockNumber int64) (err error) {
	wallets = dedup(wallets)
	if len(wallets) == 0 {
		return nil
	}
	log := c.d.Log.With(zap.String("primary", primary), zap.Int("wallets", len(wallets)))

	held := make(map[string]struct{}, len(wallets))
	defer func() {
		for w := range held {
			if e := c.d.Locks.Release(ctx, w); e != nil {
				log.Error("lock release failed", zap.String("wallet", w), zap.Error(e))
			}
		}
		if err != nil {
			for _, w := range wallets {
				if e := c.d.Outcomes.RecordFailure(ctx, w); e != nil {
					log.Error("outcome record failed", zap.String("wallet", w), zap.Error(e))
				}
			}
		}
	}()

	for _, w := range wallets {
		ok, e := c.d.Locks.TryAcquire(ctx, w)
		if e != nil {
			return e
		}
		if !ok {
			return fmt.Errorf("%s: %w", w, errs.ErrSyncInProgress)
		}
		held[w] = struct{}{}
	}

	// The export starts one past the lowest local high-water clock so no
	// identity in the request is left with a gap. Identities above that
	// floor receive an already-applied prefix; the reconciler drops it.
	lowest, err := c.lowestLocalClock(ctx, wallets)
	if err != nil {
		return err
	}

	payload, err := c.d.Exporter.Export(ctx, primary, wallets, lowest+1)
	if err != nil {
		return err
	}

	// Peer bootstrap never joins the error path, but it is awaited before
	// returning so behavior stays deterministic.
	peeringDone := make(chan struct{})
	go func() {
		defer close(peeringDone)
		if e := c.d.Peers.EstablishPeers(ctx, payload.Data.Connectivity.Addresses); e != nil {
			log.Warn("peer bootstrap incomplete", zap.Error(e))
		}
	}()
	defer func() { <-peeringDone }()

	requested := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		requested[w] = struct{}{}
	}
	for w := range payload.Data.CNodeUsers {
		if _, ok := requested[w]; !ok {
			return fmt.Errorf("%s: %w", w, errs.ErrUnexpectedUser)
		}
	}

	for _, w := range wallets {
		snap, ok := payload.Data.CNodeUsers[w]
		if !ok {
			continue
		}

		hosts, e := c.d.Directory.ResolveReplicas(ctx, w, c.d.SelfEndpoint, blockNumber)
		if e != nil {
			log.Warn("replica-set lookup failed, no fallback hosts",
				zap.String("wallet", w), zap.Error(e))
			hosts = nil
		}

		if err = c.d.Reconciler.Reconcile(ctx, requested, &snap, hosts); err != nil {
			c.recoverIfCorrupt(ctx, log, wallets, err)
			return err
		}

		// Committed (or already converged): free the lock right away and
		// record the success before moving to the next identity.
		if e := c.d.Locks.Release(ctx, w); e != nil {
			log.Error("lock release failed", zap.String("wallet", w), zap.Error(e))
		}
		delete(held, w)
		if e := c.d.Outcomes.RecordSuccess(ctx, w); e != nil {
			log.Error("outcome record failed", zap.String("wallet", w), zap.Error(e))
		}
	}
	return nil
}

// lowestLocalClock returns the minimum applied clock across the wallets,
// model.ClockNone when any of them has no local data.
func (c *Coordinator) lowestLocalClock(ctx context.Context, wallets []string) (int64, error) {
	lowest := int64(0)
	first := true
	for _, w := range wallets {
		clock := model.ClockNone
		id, err := c.d.Repo.GetByWallet(ctx, w)
		switch {
		case err == nil:
			clock = id.Clock
		case errors.Is(err, errs.ErrNotFound):
		default:
			return 0, err
		}
		if first || clock < lowest {
			lowest = clock
			first = false
		}
	}
	return lowest, nil
}

// recoverIfCorrupt wipes all locally persisted state for every requested
// identity when the failure proves local state cannot be reconciled: a
// non-contiguous clock insert or a referential-integrity violation. A future
// sync then starts from scratch instead of retrying against corruption.
func (c *Coordinator) recoverIfCorrupt(ctx context.Context, log *zap.Logger, wallets []string, cause error) {
	if !errors.Is(cause, errs.ErrNonContiguousClock) && !errors.Is(cause, errs.ErrForeignKeyViolation) {
		return
	}
	if e := c.d.Repo.Purge(ctx, wallets); e != nil {
		log.Error("corrupted-state purge failed", zap.Error(e))
		return
	}
	log.Warn("purged local state after unrecoverable failure",
		zap.Strings("wallets", wallets), zap.Error(cause))
}

// dedup removes duplicate wallets preserving first-seen order, so lock
// acquisition and release stay deterministic.
func dedup(wallets []string) []string {
	seen := make(map[string]struct{}, len(wallets))
	out := wallets[:0]
	for _, w := range wallets {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
