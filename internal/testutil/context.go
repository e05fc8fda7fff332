package testutil

import (
	"context"

	"github.com/dojobill/dojobill/internal/types"
)

const (
	// TenantA and TenantB are the two fixture tenants used by partition tests
	TenantA = "tenant_a"
	TenantB = "tenant_b"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
