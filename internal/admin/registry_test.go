package admin

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novostudio.tech/foundation/internal/entity"
)

func TestRegistry_RegisterIdempotent(t *testing.T) {
	reg := NewRegistry()

	reg.Register(entity.Products)
	reg.Register(entity.Users)
	reg.Register(entity.Products) // same type again

	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Has(reflect.TypeOf(entity.Product{})))
	assert.True(t, reg.Has(reflect.TypeOf(entity.User{})))
	assert.False(t, reg.Has(reflect.TypeOf(entity.OTPCode{})))
}

func TestRegistry_SnapshotOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(entity.Users)
	reg.Register(entity.Products)

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "users", snap[0].Resource)
	assert.Equal(t, "products", snap[1].Resource)

	// Snapshot is a copy; mutating it does not touch the registry.
	snap[0] = nil
	assert.Equal(t, "users", reg.Snapshot()[0].Resource)
}

func TestRegistry_NilDescriptorIgnored(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nil)
	assert.Zero(t, reg.Len())
}
