package peering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEligible(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080":         false,
		"http://127.0.0.1:8080":  false,
		"169.254.1.1:9000":       false,
		"10.1.2.3:8080":          true,
		"203.0.113.7":            true,
		"cn2.example.com:8080":   true,
		"https://cn2.example.io": true,
	}
	for addr, want := range cases {
		require.Equal(t, want, eligible(addr), addr)
	}
}

func TestEstablishPeers_AnnouncesAndRecords(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/peers", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body["endpoint"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	h := NewHelper(reg, "http://self", 5*time.Second, zap.NewNop())

	err := h.EstablishPeers(context.Background(), []string{srv.URL, "127.0.0.1:9"})
	require.NoError(t, err)
	require.Equal(t, "http://self", got)
	require.True(t, reg.Known(srv.URL))
	require.False(t, reg.Known("127.0.0.1:9"))
}

func TestEstablishPeers_SkipsKnown(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	reg.Add(srv.URL)
	h := NewHelper(reg, "http://self", 5*time.Second, zap.NewNop())

	require.NoError(t, h.EstablishPeers(context.Background(), []string{srv.URL}))
	require.Zero(t, hits)
}

func TestEstablishPeers_FailureReportedNotRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := NewRegistry()
	h := NewHelper(reg, "http://self", 5*time.Second, zap.NewNop())

	err := h.EstablishPeers(context.Background(), []string{srv.URL})
	require.Error(t, err)
	require.False(t, reg.Known(srv.URL))
}

func TestRegistry_List_Sorted(t *testing.T) {
	reg := NewRegistry()
	reg.Add("b")
	reg.Add("a")
	reg.Add("a")
	require.Equal(t, []string{"a", "b"}, reg.List())
}
