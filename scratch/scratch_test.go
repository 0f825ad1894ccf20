package scratch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrafterTA/UnityWallet-sub002/scratch"
	inmemorystore "github.com/CrafterTA/UnityWallet-sub002/store/inmemory"
)

const testPassword = "scratch-password"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
	}{
		{"ascii", "hello world"},
		{"empty-ish", "x"},
		{"unicode", "pässwörd-データ-🔐"},
		{"json", `{"mnemonic":"abandon abandon ability"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := scratch.Encrypt([]byte(tt.plaintext), testPassword)
			require.NoError(t, err)
			require.NotEmpty(t, envelope.Data)
			require.NotEmpty(t, envelope.IV)
			require.NotEmpty(t, envelope.Salt)

			plaintext, err := scratch.Decrypt(envelope, testPassword)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, string(plaintext))
		})
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	envelope, err := scratch.Encrypt([]byte("value"), testPassword)
	require.NoError(t, err)

	_, err = scratch.Decrypt(envelope, "not-the-password")
	require.ErrorIs(t, err, scratch.ErrDecryptionFailed)
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	envelope, err := scratch.Encrypt([]byte("value"), testPassword)
	require.NoError(t, err)

	// Flip one hex digit of the ciphertext.
	buf := []byte(envelope.Data)
	if buf[0] == '0' {
		buf[0] = '1'
	} else {
		buf[0] = '0'
	}
	envelope.Data = string(buf)

	_, err = scratch.Decrypt(envelope, testPassword)
	require.ErrorIs(t, err, scratch.ErrDecryptionFailed)
}

func TestEncryptFreshSaltAndNonce(t *testing.T) {
	first, err := scratch.Encrypt([]byte("value"), testPassword)
	require.NoError(t, err)
	second, err := scratch.Encrypt([]byte("value"), testPassword)
	require.NoError(t, err)

	require.NotEqual(t, first.Salt, second.Salt)
	require.NotEqual(t, first.IV, second.IV)
	require.NotEqual(t, first.Data, second.Data)
}

func TestStoreSetGetClear(t *testing.T) {
	ctx := context.Background()
	ephemeral := inmemorystore.NewEphemeralStore()
	store := scratch.NewStore(ephemeral)

	require.NoError(t, store.Set(ctx, "mnemonic", []byte("abandon ability"), testPassword))
	require.NoError(t, store.Set(ctx, "note", []byte("remember me"), testPassword))

	value, err := store.Get(ctx, "mnemonic", testPassword)
	require.NoError(t, err)
	require.Equal(t, "abandon ability", string(value))

	require.NoError(t, store.Clear(ctx))

	_, err = store.Get(ctx, "mnemonic", testPassword)
	require.Error(t, err)
	_, err = store.Get(ctx, "note", testPassword)
	require.Error(t, err)
}
