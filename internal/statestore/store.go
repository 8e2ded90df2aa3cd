// Package statestore persists the per-requester provisioning record:
// at most one provisioned demo identity and at most one generated
// walkthrough script per requester, with no cross-requester access.
package statestore

import (
	"context"

	"demodesk/internal/script"
)

// ProvisionResult is the outcome of provisioning a demo identity.
// Password is only populated on the response that minted it (account
// creation or a credential reset); it is stripped before persistence
// and on every load.
type ProvisionResult struct {
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// State is everything stored for one requester.
type State struct {
	Result *ProvisionResult   `json:"provisionResult,omitempty"`
	Script *script.DemoScript `json:"demoScript,omitempty"`
}

// Store is the per-requester state store. Implementations must treat
// a nil Save argument as "leave the stored field untouched" and must
// never return a password from Load.
type Store interface {
	// Save upserts the requester's record. A nil result or script
	// leaves the corresponding stored field as it was.
	Save(ctx context.Context, requesterKey string, result *ProvisionResult, s *script.DemoScript) error

	// Load returns the requester's record, or nil when none exists.
	// Any stored password is stripped before return. A corrupt stored
	// record is treated as no state and cleared.
	Load(ctx context.Context, requesterKey string) (*State, error)

	// ClearScript removes only the stored script.
	ClearScript(ctx context.Context, requesterKey string) error

	// ClearAll removes the whole record.
	ClearAll(ctx context.Context, requesterKey string) error
}

// sanitize returns a copy of r with the password removed.
func sanitize(r *ProvisionResult) *ProvisionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Password = ""
	return &c
}
