package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESSecurityManager_EncryptDecrypt(t *testing.T) {
	sec, err := NewSecurityManagerAt(filepath.Join(t.TempDir(), "master.key"))
	require.NoError(t, err)
	assert.True(t, sec.SecureKeyExists())

	enc, err := sec.EncryptCredential("public")
	require.NoError(t, err)
	assert.NotEqual(t, "public", enc)

	enc2, err := sec.EncryptCredential("public")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2, "nonce must differ between encryptions")

	dec, err := sec.DecryptCredential(enc)
	require.NoError(t, err)
	assert.Equal(t, "public", dec)
}

func TestAESSecurityManager_ReloadsExistingKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "master.key")
	first, err := NewSecurityManagerAt(keyPath)
	require.NoError(t, err)
	enc, err := first.EncryptCredential("secret")
	require.NoError(t, err)

	second, err := NewSecurityManagerAt(keyPath)
	require.NoError(t, err)
	dec, err := second.DecryptCredential(enc)
	require.NoError(t, err)
	assert.Equal(t, "secret", dec)
}

func TestAESSecurityManager_RejectsGarbage(t *testing.T) {
	sec, err := NewSecurityManagerAt(filepath.Join(t.TempDir(), "master.key"))
	require.NoError(t, err)

	_, err = sec.DecryptCredential("not base64!")
	assert.Error(t, err)

	_, err = sec.DecryptCredential("c2hvcnQ=")
	assert.Error(t, err)
}

func TestAESSecurityManager_ClearSecurityData(t *testing.T) {
	sec, err := NewSecurityManagerAt(filepath.Join(t.TempDir(), "master.key"))
	require.NoError(t, err)

	require.NoError(t, sec.ClearSecurityData())
	assert.False(t, sec.SecureKeyExists())

	_, err = sec.EncryptCredential("x")
	assert.Error(t, err)
}
