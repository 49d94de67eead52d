// Package peering establishes best-effort direct links to peers advertised by
// a primary. Nothing here may ever abort a sync.
package peering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry tracks peer addresses already known to this node.
type Registry struct {
	mu    sync.Mutex
	peers map[string]struct{}
}

// NewRegistry constructs an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]struct{})}
}

// Add records a peer address.
func (r *Registry) Add(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[addr] = struct{}{}
}

// Known reports whether a peer address is already recorded.
func (r *Registry) Known(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[addr]
	return ok
}

// List returns all recorded peer addresses in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.peers))
	for p := range r.peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Helper announces this node to advertised peers and records the link.
type Helper struct {
	reg   *Registry
	httpc *http.Client
	self  string
	log   *zap.Logger
}

// NewHelper constructs a peering helper announcing selfEndpoint.
func NewHelper(reg *Registry, self string, timeout time.Duration, log *zap.Logger) *Helper {
	return &Helper{
		reg:   reg,
		httpc: &http.Client{Timeout: timeout},
		self:  self,
		log:   log,
	}
}

// EstablishPeers attempts a direct link to every eligible address. Loopback
// and link-local addresses are skipped, as are addresses already known. Each
// failure is logged and skipped; the first one is returned so callers can
// log it, but callers must never treat it as fatal.
func (h *Helper) EstablishPeers(ctx context.Context, addrs []string) error {
	var firstErr error
	for _, addr := range addrs {
		if !eligible(addr) || h.reg.Known(addr) {
			continue
		}
		if err := h.connect(ctx, addr); err != nil {
			h.log.Info("peer link failed", zap.String("addr", addr), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		h.reg.Add(addr)
	}
	return firstErr
}

// connect announces this node on the peer's registration endpoint.
func (h *Helper) connect(ctx context.Context, addr string) error {
	body, err := json.Marshal(map[string]string{"endpoint": h.self})
	if err != nil {
		return err
	}
	url := strings.TrimRight(addr, "/") + "/internal/peers"
	if !strings.Contains(addr, "://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s: status %d", addr, resp.StatusCode)
	}
	return nil
}

// eligible filters out loopback and link-local addresses. Hostnames pass.
func eligible(addr string) bool {
	host := addr
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !ip.IsLinkLocalMulticast()
}
