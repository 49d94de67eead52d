package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harmonia-net/content-node/internal/errs"
)

// tokenTTL bounds the validity of node-to-node bearer tokens.
const tokenTTL = time.Minute

// Client issues export requests to a primary. One request covers a bounded
// sub-range of outstanding history; full convergence takes repeated rounds.
type Client struct {
	httpc   *http.Client
	self    string
	signKey []byte // empty disables request signing
}

// NewClient constructs an export client. timeout applies to the whole export
// call; it is deliberately generous because exports can carry thousands of
// clock records.
func NewClient(timeout time.Duration, selfEndpoint string, signKey []byte) *Client {
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		self:    selfEndpoint,
		signKey: signKey,
	}
}

// Export requests snapshots for userKeys starting at clockRangeMin and
// validates the response shape. Any non-success status or missing required
// key yields errs.ErrMalformedResponse.
func (c *Client) Export(ctx context.Context, primary string, userKeys []string, clockRangeMin int64) (*Payload, error) {
	body, err := json.Marshal(Request{
		UserKeys:       userKeys,
		ClockRangeMin:  clockRangeMin,
		SourceEndpoint: c.self,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(primary, "/") + "/internal/export"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(c.signKey) > 0 {
		token, err := c.bearerToken()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export from %s: %w", primary, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export from %s: status %d: %w", primary, resp.StatusCode, errs.ErrMalformedResponse)
	}

	var p Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("export from %s: decode: %w", primary, errs.ErrMalformedResponse)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("export from %s: %w", primary, err)
	}
	return &p, nil
}

func (c *Client) bearerToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.self,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signKey)
}
