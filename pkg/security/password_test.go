package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerify(t *testing.T) {
	hasher := security.NewHasher(cheap)

	hash, err := hasher.Hash("very-secure-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, stale, err := hasher.Verify("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stale)

	ok, _, err = hasher.Verify("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	hasher := security.NewHasher(cheap)
	a, err := hasher.Hash("same")
	require.NoError(t, err)
	b, err := hasher.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyFlagsStaleParameters(t *testing.T) {
	old, err := security.NewHasher(cheap).Hash("rotate-me")
	require.NoError(t, err)

	stronger := cheap
	stronger.ArgonTime = 2
	ok, stale, err := security.NewHasher(stronger).Verify("rotate-me", old)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, stale)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := security.NewHasher(cheap)
	cases := []string{
		"not-a-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",
	}
	for _, encoded := range cases {
		_, _, err := hasher.Verify("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := security.NewHasher(cheap).Hash("")
	assert.Error(t, err)
}

func TestCheckPasswordPolicy(t *testing.T) {
	assert.ErrorIs(t, security.CheckPasswordPolicy("  abc  "), security.ErrPasswordTooShort)
	assert.NoError(t, security.CheckPasswordPolicy("secret"))
}
