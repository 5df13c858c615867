// Package sitecommon provides context management and shared helpers for the
// site provisioning service. It carries the tenant and requesting-user identity
// through the provisioning pipeline.
package sitecommon

import (
	"context"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// ctxKeyType represents the type for all context keys
type ctxKeyType string

const (
	ctxTenantIdKey ctxKeyType = "SiteTenantId"
)

// UserIdentity is the owner identity supplied by the (external) request layer.
type UserIdentity struct {
	ID    types.UserId
	Email string
	Name  string
}

// SetTenantIdInContext sets the tenant ID in the provided context.
func SetTenantIdInContext(ctx context.Context, tenantId types.TenantId) context.Context {
	return context.WithValue(ctx, ctxTenantIdKey, tenantId)
}

// TenantIdFromContext retrieves the tenant ID from the provided context.
func TenantIdFromContext(ctx context.Context) types.TenantId {
	if tenantId, ok := ctx.Value(ctxTenantIdKey).(types.TenantId); ok {
		return tenantId
	}
	return ""
}
