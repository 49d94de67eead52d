package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPResolver queries the directory service over HTTP.
type HTTPResolver struct {
	base  string
	httpc *http.Client
}

// NewHTTPResolver constructs a resolver against the directory service base URL.
func NewHTTPResolver(base string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		base:  strings.TrimRight(base, "/"),
		httpc: &http.Client{Timeout: timeout},
	}
}

// ResolveReplicas returns the user's replica-set endpoints minus selfEndpoint.
func (r *HTTPResolver) ResolveReplicas(ctx context.Context, wallet, selfEndpoint string, blockNumber int64) ([]string, error) {
	q := url.Values{}
	q.Set("wallet", wallet)
	if blockNumber > 0 {
		q.Set("blockNumber", strconv.FormatInt(blockNumber, 10))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/replica-set?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replica-set lookup for %s: status %d", wallet, resp.StatusCode)
	}

	var out struct {
		Endpoints []string `json:"endpoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	eps := out.Endpoints[:0]
	for _, ep := range out.Endpoints {
		if ep != selfEndpoint {
			eps = append(eps, ep)
		}
	}
	return eps, nil
}
