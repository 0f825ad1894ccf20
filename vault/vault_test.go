package vault_test

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/scrypt"

	"github.com/CrafterTA/UnityWallet-sub002/types"
	"github.com/CrafterTA/UnityWallet-sub002/vault"
)

const (
	testAddress  = "02a1633cafcc01ebfb6d78e39f687a1f0995c62fc95f51ead10a02ee0be551b5dc"
	testPassword = "correct-horse"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		secret []byte
	}{
		{"seed", []byte("SEED123")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x7f}},
		{"unicode", []byte("秘密のシード🔑")},
		{"long", make([]byte, 4096)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := vault.Create(tt.secret, testPassword, testAddress)
			require.NoError(t, err)
			require.Equal(t, testAddress, record.Address)
			require.Equal(t, vault.Version, record.Version)
			require.Equal(t, vault.KdfPbkdf2, record.Crypto.Kdf)
			require.Equal(t, vault.KdfIterations, record.Crypto.KdfParams.Iterations)
			require.NotEmpty(t, record.ID)

			secret, err := vault.Open(record, testPassword)
			require.NoError(t, err)
			require.Equal(t, tt.secret, secret)
		})
	}
}

func TestOpenWrongPassword(t *testing.T) {
	record, err := vault.Create([]byte("SEED123"), testPassword, testAddress)
	require.NoError(t, err)

	for _, password := range []string{"wrong-password", "correct-horsE", " correct-horse", ""} {
		secret, err := vault.Open(record, password)
		require.ErrorIs(t, err, vault.ErrInvalidPassword)
		require.Nil(t, secret)
	}
}

func TestOpenTamperedRecord(t *testing.T) {
	record, err := vault.Create([]byte("SEED123"), testPassword, testAddress)
	require.NoError(t, err)

	flipHexByte := func(s string, index int) string {
		buf, err := hex.DecodeString(s)
		require.NoError(t, err)
		buf[index] ^= 0x01
		return hex.EncodeToString(buf)
	}

	t.Run("ciphertext", func(t *testing.T) {
		tampered := record
		tampered.Crypto.Ciphertext = flipHexByte(record.Crypto.Ciphertext, 0)
		_, err := vault.Open(tampered, testPassword)
		require.ErrorIs(t, err, vault.ErrInvalidPassword)
	})

	t.Run("iv", func(t *testing.T) {
		tampered := record
		tampered.Crypto.CipherParams.IV = flipHexByte(record.Crypto.CipherParams.IV, 3)
		_, err := vault.Open(tampered, testPassword)
		require.ErrorIs(t, err, vault.ErrInvalidPassword)
	})

	t.Run("salt", func(t *testing.T) {
		tampered := record
		tampered.Crypto.KdfParams.Salt = flipHexByte(record.Crypto.KdfParams.Salt, 7)
		_, err := vault.Open(tampered, testPassword)
		require.ErrorIs(t, err, vault.ErrInvalidPassword)
	})
}

func TestOpenMalformedRecord(t *testing.T) {
	record, err := vault.Create([]byte("SEED123"), testPassword, testAddress)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *types.KeystoreRecord)
	}{
		{"bad cipher", func(r *types.KeystoreRecord) { r.Crypto.Cipher = "aes-256-cbc" }},
		{"bad ciphertext hex", func(r *types.KeystoreRecord) { r.Crypto.Ciphertext = "zz" }},
		{"empty ciphertext", func(r *types.KeystoreRecord) { r.Crypto.Ciphertext = "" }},
		{"short iv", func(r *types.KeystoreRecord) { r.Crypto.CipherParams.IV = "abcd" }},
		{"empty salt", func(r *types.KeystoreRecord) { r.Crypto.KdfParams.Salt = "" }},
		{"short mac", func(r *types.KeystoreRecord) { r.Crypto.Mac = "abcd" }},
		{"unknown kdf", func(r *types.KeystoreRecord) { r.Crypto.Kdf = "argon2id" }},
		{"zero iterations", func(r *types.KeystoreRecord) { r.Crypto.KdfParams.Iterations = 0 }},
		{"zero dklen", func(r *types.KeystoreRecord) { r.Crypto.KdfParams.DkLen = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := record
			tt.mutate(&tampered)
			_, err := vault.Open(tampered, testPassword)
			require.ErrorIs(t, err, vault.ErrMalformedRecord)
		})
	}
}

// Legacy records derived with scrypt must keep decrypting with the cost
// parameters embedded in them.
func TestOpenScryptRecord(t *testing.T) {
	secret := []byte("legacy-secret")
	salt := []byte("0123456789abcdef0123456789abcdef")
	n, r, p, dkLen := 1 << 12, 8, 1, 32

	derivedKey, err := scrypt.Key([]byte(testPassword), salt, n, r, p, dkLen)
	require.NoError(t, err)

	iv := make([]byte, 16)
	copy(iv, "fixed-iv-16bytes")
	ciphertext := xorCtr(t, derivedKey[:16], iv, secret)

	h := sha256.New()
	h.Write(derivedKey)
	h.Write(ciphertext)

	record := types.KeystoreRecord{
		Address: testAddress,
		ID:      "legacy",
		Version: 3,
		Crypto: types.CryptoParams{
			Cipher:       "aes-128-ctr",
			Ciphertext:   hex.EncodeToString(ciphertext),
			CipherParams: types.CipherParams{IV: hex.EncodeToString(iv)},
			Kdf:          vault.KdfScrypt,
			KdfParams: types.KdfParams{
				DkLen: dkLen,
				N:     n,
				R:     r,
				P:     p,
				Salt:  hex.EncodeToString(salt),
			},
			Mac: hex.EncodeToString(h.Sum(nil)),
		},
	}

	got, err := vault.Open(record, testPassword)
	require.NoError(t, err)
	require.Equal(t, secret, got)

	_, err = vault.Open(record, "wrong-password")
	require.ErrorIs(t, err, vault.ErrInvalidPassword)
}

func xorCtr(t *testing.T, key, iv, data []byte) []byte {
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out
}

func TestCreateUniqueSaltAndIV(t *testing.T) {
	first, err := vault.Create([]byte("SEED123"), testPassword, testAddress)
	require.NoError(t, err)
	second, err := vault.Create([]byte("SEED123"), testPassword, testAddress)
	require.NoError(t, err)

	require.NotEqual(t, first.Crypto.KdfParams.Salt, second.Crypto.KdfParams.Salt)
	require.NotEqual(t, first.Crypto.CipherParams.IV, second.Crypto.CipherParams.IV)
	require.NotEqual(t, first.Crypto.Ciphertext, second.Crypto.Ciphertext)
	require.NotEqual(t, first.ID, second.ID)
}
