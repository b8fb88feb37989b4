package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_GeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)

	id1, err := v.Init("p@ss")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(id1), 43)
	require.LessOrEqual(t, len(id1), 44)

	v2 := New(dir)
	id2, err := v2.Init("p@ss")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestInit_WrongPassword(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	_, err := v.Init("p@ss")
	require.NoError(t, err)

	v2 := New(dir)
	_, err = v2.Init("wrong")
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	a, b := New(dirA), New(dirB)
	_, err := a.Init("alice-pass")
	require.NoError(t, err)
	_, err = b.Init("bob-pass")
	require.NoError(t, err)

	aID, err := a.Identity()
	require.NoError(t, err)
	bID, err := b.Identity()
	require.NoError(t, err)

	envelope, err := a.EncryptTo(bID.PublicKey, []byte("hello, bob"))
	require.NoError(t, err)

	senderPK, plaintext, err := b.DecryptFrom(envelope)
	require.NoError(t, err)
	require.Equal(t, aID.PublicKey, senderPK)
	require.Equal(t, "hello, bob", string(plaintext))
}

func TestDecryptFrom_TamperedEnvelopeFails(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	a, b := New(dirA), New(dirB)
	_, err := a.Init("alice-pass")
	require.NoError(t, err)
	_, err = b.Init("bob-pass")
	require.NoError(t, err)
	bID, err := b.Identity()
	require.NoError(t, err)

	envelope, err := a.EncryptTo(bID.PublicKey, []byte("hello"))
	require.NoError(t, err)
	envelope[len(envelope)-1] ^= 0xFF

	_, _, err = b.DecryptFrom(envelope)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecodePublicKey_RejectsWrongLength(t *testing.T) {
	_, err := DecodePublicKey("not-base58-!!")
	require.ErrorIs(t, err, ErrInvalidPeerKey)

	_, err = DecodePublicKey("2NEpo7TZRRrLZSi2U")
	require.ErrorIs(t, err, ErrInvalidPeerKey)
}

func TestMnemonicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	_, err := v.Init("p@ss")
	require.NoError(t, err)

	mnemonic, err := v.ExportMnemonic()
	require.NoError(t, err)

	restoreDir := t.TempDir()
	restored := New(restoreDir)
	id, err := restored.ImportMnemonic(mnemonic, "p@ss")
	require.NoError(t, err)

	original, err := v.PublicID()
	require.NoError(t, err)
	require.Equal(t, original, id)
}

func TestWipe_ClearsCachedIdentity(t *testing.T) {
	v := New(t.TempDir())
	_, err := v.Init("p@ss")
	require.NoError(t, err)

	v.Wipe()

	_, err = v.PublicID()
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = v.Identity()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestXDHSharedSecretSymmetric(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	a, b := New(dirA), New(dirB)
	_, err := a.Init("alice-pass")
	require.NoError(t, err)
	_, err = b.Init("bob-pass")
	require.NoError(t, err)
	aID, err := a.Identity()
	require.NoError(t, err)
	bID, err := b.Identity()
	require.NoError(t, err)

	k1, err := messageKey(aID.PrivateKey, bID.PublicKey)
	require.NoError(t, err)
	k2, err := messageKey(bID.PrivateKey, aID.PublicKey)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}
