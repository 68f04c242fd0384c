package cryptox_test

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/crewbase/crewbase/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func tempRoot() string {
	dir, err := os.MkdirTemp("", "cryptox-test-*")
	if err != nil {
		panic(err)
	}
	return dir
}

func TestGenerateToken(t *testing.T) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, cryptox.TokenSize256)

	other, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestGenerateTokenRejectsNonPositiveSize(t *testing.T) {
	_, err := cryptox.GenerateToken(0)
	require.Error(t, err)
	_, err = cryptox.GenerateToken(-4)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	fp := cryptox.FingerprintToken("some-opaque-token")

	// Deterministic and distinct from the input.
	require.Equal(t, fp, cryptox.FingerprintToken("some-opaque-token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("some-opaque-tokeN"))
	require.NotEqual(t, "some-opaque-token", fp)

	require.True(t, cryptox.FingerprintEqual("some-opaque-token", fp))
	require.False(t, cryptox.FingerprintEqual("other-token", fp))

	// FingerprintEqual takes the raw token; a pre-computed fingerprint
	// passed in its place must not match.
	require.False(t, cryptox.FingerprintEqual(fp, fp))
}
