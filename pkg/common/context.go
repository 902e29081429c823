package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyIdentity  ContextKey = "identity"
	ContextKeyRequestID ContextKey = "request_id"
)

// AdminGroup is the group membership that grants admin rights.
const AdminGroup = "admins"

// Identity is the verified caller identity supplied by the routing/auth
// layer. The core never verifies tokens itself; it trusts this tuple.
type Identity struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Groups []string `json:"groups,omitempty"`
}

// IsAdmin reports whether the identity belongs to the admin group.
func (id Identity) IsAdmin() bool {
	for _, g := range id.Groups {
		if g == AdminGroup {
			return true
		}
	}
	return false
}

// WithIdentity adds the verified identity to context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// GetIdentity extracts the verified identity from context
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(Identity)
	return id, ok
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}
