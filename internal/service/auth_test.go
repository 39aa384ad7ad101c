package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

func TestAuthService_ValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService([]string{"key-one", " ", " key-two "})

	assert.True(t, svc.Enabled())

	id, err := svc.ValidateAPIKey(ctx, "key-one")
	require.NoError(t, err)
	assert.Equal(t, ClientID("key-one"), id)
	assert.Len(t, id, 12)

	_, err = svc.ValidateAPIKey(ctx, "key-two")
	require.NoError(t, err, "configured keys are trimmed")

	_, err = svc.ValidateAPIKey(ctx, "key-three")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	_, err = svc.ValidateAPIKey(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_Disabled(t *testing.T) {
	svc := NewAuthService(nil)
	assert.False(t, svc.Enabled())

	_, err := svc.ValidateAPIKey(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "aq_"))
	assert.Len(t, a, len("aq_")+64)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, ClientID(a), ClientID(b))
}
