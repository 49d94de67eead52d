package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPResolver_ExcludesSelf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/replica-set", r.URL.Path)
		require.Equal(t, "0xabc", r.URL.Query().Get("wallet"))
		require.Equal(t, "42", r.URL.Query().Get("blockNumber"))
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"endpoints": {"http://cn1", "http://self", "http://cn2"},
		})
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, 5*time.Second)
	eps, err := r.ResolveReplicas(context.Background(), "0xabc", "http://self", 42)
	require.NoError(t, err)
	require.Equal(t, []string{"http://cn1", "http://cn2"}, eps)
}

func TestHTTPResolver_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, 5*time.Second)
	_, err := r.ResolveReplicas(context.Background(), "0xabc", "http://self", 0)
	require.Error(t, err)
}
