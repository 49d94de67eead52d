// Package directory looks up the replica set for a user from the external
// replica-set directory service.
package directory

import "context"

// Resolver resolves the endpoints replicating a user's content, excluding the
// calling node itself. Failures are expected to be treated as non-fatal by
// callers, degrading to an empty fallback set.
type Resolver interface {
	ResolveReplicas(ctx context.Context, wallet, selfEndpoint string, blockNumber int64) ([]string, error)
}
