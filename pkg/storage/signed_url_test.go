package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSignerRoundTrip(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)

	token, expiresAt, err := signer.Sign("r1", "receipts/receipt_r1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	requestID, relPath, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "r1", requestID)
	assert.Equal(t, "receipts/receipt_r1.pdf", relPath)
}

func TestTokenSignerRejectsTampering(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, _, err := signer.Sign("r1", "receipts/receipt_r1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "r2"
	_, _, err = signer.Verify(strings.Join(parts, "."))
	require.Error(t, err)

	other := NewTokenSigner("different", time.Hour)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestTokenSignerExpiry(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	current := base
	signer.now = func() time.Time { return current }

	token, _, err := signer.Sign("r1", "receipts/receipt_r1.pdf")
	require.NoError(t, err)

	current = base.Add(2 * time.Hour)
	_, _, err = signer.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
