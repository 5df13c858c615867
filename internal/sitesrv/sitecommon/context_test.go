package sitecommon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

func TestTenantIdContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, types.TenantId(""), TenantIdFromContext(ctx))

	ctx = SetTenantIdInContext(ctx, types.TenantId("TABCDE12345"))
	assert.Equal(t, types.TenantId("TABCDE12345"), TenantIdFromContext(ctx))

	// overwriting replaces the previous value
	ctx = SetTenantIdInContext(ctx, types.TenantId("TFGHIJ67890"))
	assert.Equal(t, types.TenantId("TFGHIJ67890"), TenantIdFromContext(ctx))
}
