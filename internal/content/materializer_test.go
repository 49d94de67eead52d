package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
)

func newMaterializer(t *testing.T) (*Materializer, string) {
	t.Helper()
	root := t.TempDir()
	return New(root, 4, 5*time.Second, zap.NewNop()), root
}

func TestEnsure_LocalPresenceWins(t *testing.T) {
	m, root := newMaterializer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "Qmx"), []byte("bytes"), 0o644))

	// no hosts: would fail if a fetch were attempted
	err := m.Ensure(context.Background(), "Qmx", "a/Qmx", nil, "")
	require.NoError(t, err)
}

func TestEnsure_FallbackToSecondHost(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusNotFound)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/Qmx", r.URL.Path)
		_, _ = w.Write([]byte("bytes"))
	}))
	defer good.Close()

	m, root := newMaterializer(t)
	err := m.Ensure(context.Background(), "Qmx", "a/Qmx", []string{bad.URL, good.URL}, "")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "a", "Qmx"))
	require.NoError(t, err)
	require.Equal(t, []byte("bytes"), data)
}

func TestEnsure_AllHostsFail_Exhausted(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer bad.Close()

	m, _ := newMaterializer(t)
	err := m.Ensure(context.Background(), "Qmx", "a/Qmx", []string{bad.URL, bad.URL}, "")
	require.ErrorIs(t, err, errs.ErrFetchExhausted)
}

func TestEnsure_NoHosts_Exhausted(t *testing.T) {
	m, _ := newMaterializer(t)
	err := m.Ensure(context.Background(), "Qmx", "a/Qmx", nil, "")
	require.ErrorIs(t, err, errs.ErrFetchExhausted)
}

func TestEnsure_ImageFileNameInPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/Qmdir/original.jpg", r.URL.Path)
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	m, _ := newMaterializer(t)
	err := m.Ensure(context.Background(), "Qmdir", "img/Qmdir/original.jpg", []string{srv.URL}, "original.jpg")
	require.NoError(t, err)
}

func TestEnsureAll_SkipsDirEntries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	m, _ := newMaterializer(t)
	name := "original.jpg"
	entries := []model.FileEntry{
		{Multihash: "Qmdir", StoragePath: "d/Qmdir", Type: model.FileTypeDir},
		{Multihash: "Qma", StoragePath: "a/Qma", Type: model.FileTypeMetadata},
		{Multihash: "Qmb", StoragePath: "b/Qmb/original.jpg", Type: model.FileTypeImage, FileName: &name},
	}
	err := m.EnsureAll(context.Background(), entries, []string{srv.URL})
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestEnsureAll_PropagatesFailure(t *testing.T) {
	m, _ := newMaterializer(t)
	entries := []model.FileEntry{
		{Multihash: "Qma", StoragePath: "a/Qma", Type: model.FileTypeMetadata},
	}
	err := m.EnsureAll(context.Background(), entries, nil)
	require.ErrorIs(t, err, errs.ErrFetchExhausted)
}
