// Package session holds the per-client broker session tokens the gateway
// keeps between calls. State is process-local: records live until an
// explicit logout or process exit, and re-authentication overwrites.
package session

import "time"

// Record is the token set stored for one logged-in client. The gateway keeps
// at most one record per ClientID; updates are last-writer-wins.
type Record struct {
	// ID is a gateway-local handle, useful for correlating log lines
	// without printing tokens.
	ID           string
	ClientID     string
	APIKey       string
	JWTToken     string
	FeedToken    string
	RefreshToken string
	CreatedAt    time.Time
}

// Store is the contract for session persistence.
//
// Implementations must be safe for concurrent use - two requests for the
// same client (e.g. concurrent refresh attempts) may interleave, and the
// store must keep each write atomic. Cross-write ordering is not required.
type Store interface {
	// Put stores a record, overwriting any existing record for the same
	// ClientID.
	Put(rec Record) error

	// Get returns the record for a client, or ok=false when absent.
	Get(clientID string) (Record, bool)

	// Delete removes the record for a client. Deleting an absent client
	// is a no-op.
	Delete(clientID string) error
}
