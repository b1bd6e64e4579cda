package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOwner(t *testing.T) {
	anon := context.Background()
	assert.NoError(t, CheckOwner(anon, 2))

	ctx := WithPrincipal(anon, &Principal{UserID: 1, Username: "john"})
	assert.NoError(t, CheckOwner(ctx, 1))

	err := CheckOwner(ctx, 2)
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "Access denied", err.Error())
}

func TestPrincipalFromContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFromContext(WithPrincipal(context.Background(), nil))
	assert.False(t, ok)

	p, ok := PrincipalFromContext(WithPrincipal(context.Background(), &Principal{UserID: 9}))
	require.True(t, ok)
	assert.Equal(t, int64(9), p.UserID)
}
