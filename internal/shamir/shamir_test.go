package shamir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDealReconstruct_ThresholdRecovers(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	shares, err := Deal(secret, 2, 3)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	recovered, err := Reconstruct(shares[:2])
	require.NoError(t, err)
	require.Equal(t, secret, recovered)

	recovered, err = Reconstruct([]string{shares[0], shares[2]})
	require.NoError(t, err)
	require.Equal(t, secret, recovered)
}

func TestReconstruct_BelowThresholdDoesNotRecoverSecret(t *testing.T) {
	secret := []byte("a-32-byte-session-key-xxxxxxxxxx")
	shares, err := Deal(secret, 3, 5)
	require.NoError(t, err)

	recovered, err := Reconstruct(shares[:2])
	if err == nil {
		require.NotEqual(t, secret, recovered)
	}
}

func TestValidatePolicy(t *testing.T) {
	require.NoError(t, ValidatePolicy(2, 3))
	require.NoError(t, ValidatePolicy(10, 10))
	require.ErrorIs(t, ValidatePolicy(1, 3), ErrInvalidPolicy)
	require.ErrorIs(t, ValidatePolicy(4, 3), ErrInvalidPolicy)
	require.ErrorIs(t, ValidatePolicy(3, 11), ErrInvalidPolicy)
}

func TestReconstruct_InvalidHexShare(t *testing.T) {
	_, err := Reconstruct([]string{"not-hex"})
	require.ErrorIs(t, err, ErrInvalidShare)
}
