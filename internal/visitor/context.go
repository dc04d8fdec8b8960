// Package visitor carries the browser identities resolved by middleware.
package visitor

import (
	"context"
	"net/http"

	"movieverse/models"
)

// A tab session travels with the tab itself: page URLs carry it in the
// TabParam query parameter and scripts send it in TabHeader.
const (
	TabParam  = "tab"
	TabHeader = "X-Tab-ID"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeyTabID is the key for the tab session id in the context
	ContextKeyTabID ContextKey = "tabID"
	// ContextKeyProfileID is the key for the long-lived profile id in the context
	ContextKeyProfileID ContextKey = "profileID"
)

// WithVisitor returns ctx carrying v.
func WithVisitor(ctx context.Context, v models.Visitor) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTabID, v.TabID)
	return context.WithValue(ctx, ContextKeyProfileID, v.ProfileID)
}

// TabID retrieves the tab session id from the request context.
func TabID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyTabID).(string); ok {
		return id
	}
	return ""
}

// ProfileID retrieves the profile id from the request context.
func ProfileID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyProfileID).(string); ok {
		return id
	}
	return ""
}

// FromRequest returns both identities.
func FromRequest(r *http.Request) models.Visitor {
	return models.Visitor{TabID: TabID(r), ProfileID: ProfileID(r)}
}
