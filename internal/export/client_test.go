package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
)

func okPayload() Payload {
	return Payload{Data: &Data{
		CNodeUsers: map[string]model.Snapshot{
			"0xabc": {Wallet: "0xabc", Clock: 2},
		},
		Connectivity: &Connectivity{Addresses: []string{"cn2.example.com:8080"}},
	}}
}

func TestClient_Export_OK(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/internal/export", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(okPayload())
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "http://self", nil)
	p, err := c.Export(context.Background(), srv.URL, []string{"0xabc"}, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"0xabc"}, got.UserKeys)
	require.Equal(t, int64(3), got.ClockRangeMin)
	require.Equal(t, "http://self", got.SourceEndpoint)
	require.Contains(t, p.Data.CNodeUsers, "0xabc")
	require.Equal(t, int64(2), p.Data.CNodeUsers["0xabc"].Clock)
}

func TestClient_Export_SignsRequests(t *testing.T) {
	key := []byte("network-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		require.NotEmpty(t, auth)
		raw := auth[len("Bearer "):]
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
		require.NoError(t, err)
		require.Equal(t, "http://self", claims.Issuer)
		_ = json.NewEncoder(w).Encode(okPayload())
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "http://self", key)
	_, err := c.Export(context.Background(), srv.URL, []string{"0xabc"}, 0)
	require.NoError(t, err)
}

func TestClient_Export_NonSuccessStatus_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "http://self", nil)
	_, err := c.Export(context.Background(), srv.URL, []string{"0xabc"}, 0)
	require.ErrorIs(t, err, errs.ErrMalformedResponse)
}

func TestClient_Export_MissingKeys_Malformed(t *testing.T) {
	cases := map[string]string{
		"no data":         `{}`,
		"no cnodeUsers":   `{"data":{"connectivity":{"addresses":[]}}}`,
		"no connectivity": `{"data":{"cnodeUsers":{}}}`,
		"not json":        `<html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(5*time.Second, "http://self", nil)
			_, err := c.Export(context.Background(), srv.URL, []string{"0xabc"}, 0)
			require.ErrorIs(t, err, errs.ErrMalformedResponse)
		})
	}
}
