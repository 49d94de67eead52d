// Package content materializes content-addressed files on local disk, pulling
// missing bytes from replica-set fallback hosts.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
)

// Materializer fetches content bytes into the local storage root. Concurrent
// fetches are bounded by maxInFlight to limit load on this host and on the
// remote replica set.
type Materializer struct {
	root        string
	httpc       *http.Client
	maxInFlight int
	log         *zap.Logger
}

// New constructs a Materializer over the given storage root.
func New(root string, maxInFlight int, fetchTimeout time.Duration, log *zap.Logger) *Materializer {
	if maxInFlight <= 0 {
		maxInFlight = 10
	}
	return &Materializer{
		root:        root,
		httpc:       &http.Client{Timeout: fetchTimeout},
		maxInFlight: maxInFlight,
		log:         log,
	}
}

// Ensure makes the content for one address present at storagePath. Local
// presence wins; otherwise each fallback host is tried in order. Exhausting
// all hosts yields errs.ErrFetchExhausted.
func (m *Materializer) Ensure(ctx context.Context, multihash, storagePath string, hosts []string, fileName string) error {
	dst := filepath.Join(m.root, storagePath)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	for _, host := range hosts {
		if err := m.fetchFrom(ctx, host, multihash, fileName, dst); err != nil {
			m.log.Debug("content fetch failed",
				zap.String("host", host),
				zap.String("multihash", multihash),
				zap.Error(err),
			)
			continue
		}
		return nil
	}
	return fmt.Errorf("content %s: tried %d hosts: %w", multihash, len(hosts), errs.ErrFetchExhausted)
}

// EnsureAll materializes every snapshot file entry with bounded concurrency.
// Directory entries are skipped; their children are separate entries. Image
// entries with a stored file name are fetched by name under the multihash dir.
func (m *Materializer) EnsureAll(ctx context.Context, entries []model.FileEntry, hosts []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxInFlight)
	for _, e := range entries {
		e := e
		if e.Type == model.FileTypeDir {
			continue
		}
		var name string
		if e.Type == model.FileTypeImage && e.FileName != nil {
			name = *e.FileName
		}
		g.Go(func() error {
			return m.Ensure(ctx, e.Multihash, e.StoragePath, hosts, name)
		})
	}
	return g.Wait()
}

func (m *Materializer) fetchFrom(ctx context.Context, host, multihash, fileName, dst string) error {
	url := strings.TrimRight(host, "/") + "/content/" + multihash
	if fileName != "" {
		url += "/" + fileName
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
