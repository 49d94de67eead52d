// Package export defines the node-to-node export wire contract and the client
// that pulls bounded-range exports from a primary.
package export

import (
	"fmt"

	"github.com/harmonia-net/content-node/internal/errs"
	"github.com/harmonia-net/content-node/internal/model"
)

// Request is the body of an export call to a primary.
type Request struct {
	UserKeys       []string `json:"userKeys"`
	ClockRangeMin  int64    `json:"clockRangeMin"`
	SourceEndpoint string   `json:"sourceEndpoint,omitempty"`
}

// Payload is the envelope of an export response.
type Payload struct {
	Data *Data `json:"data"`
}

// Data carries the per-user snapshots and the primary's connectivity metadata.
type Data struct {
	CNodeUsers   map[string]model.Snapshot `json:"cnodeUsers"`
	Connectivity *Connectivity             `json:"connectivity"`
}

// Connectivity lists peer addresses advertised by the primary.
type Connectivity struct {
	Addresses []string `json:"addresses"`
}

// Validate checks the response shape before any further processing. A payload
// missing any required key is malformed; snapshots themselves are validated
// later, per identity, by the reconciler.
func (p *Payload) Validate() error {
	switch {
	case p.Data == nil:
		return fmt.Errorf("missing data: %w", errs.ErrMalformedResponse)
	case p.Data.CNodeUsers == nil:
		return fmt.Errorf("missing cnodeUsers: %w", errs.ErrMalformedResponse)
	case p.Data.Connectivity == nil:
		return fmt.Errorf("missing connectivity: %w", errs.ErrMalformedResponse)
	}
	return nil
}
