// Package vault implements the encrypted keystore format used to protect a
// wallet private key at rest. A record can be stored anywhere: nothing in it
// is usable without the password, and the mac binds the ciphertext, iv and
// salt so a single flipped byte makes Open fail for every password.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const (
	// Version is written into every record produced by Create. Bump it
	// together with KdfPbkdf2 parameters when the derivation changes, so old
	// records keep decrypting with the parameters embedded in them.
	Version = 3

	// PBKDF2 cost for new records. High on purpose: the keystore is the
	// durable copy of the key and brute-force cost is the only thing standing
	// between a leaked record and the funds. The count is embedded in
	// kdfparams and always read back from the record on Open.
	KdfIterations = 310_000

	KdfPbkdf2 = "pbkdf2"
	KdfScrypt = "scrypt"

	cipherAes128Ctr = "aes-128-ctr"

	saltLen = 32
	ivLen   = 16
	dkLen   = 32
)

var (
	// ErrInvalidPassword covers both a wrong password and a tampered record.
	// Collapsing the two avoids giving an attacker an oracle for which one
	// it was.
	ErrInvalidPassword = errors.New("invalid password or corrupted keystore")

	// ErrMalformedRecord is returned for records with missing or
	// unparseable fields.
	ErrMalformedRecord = errors.New("malformed keystore record")
)

// Create encrypts secret under password and returns a fresh keystore record.
func Create(secret []byte, password, address string) (types.KeystoreRecord, error) {
	if len(secret) == 0 {
		return types.KeystoreRecord{}, fmt.Errorf("missing secret")
	}
	if len(password) == 0 {
		return types.KeystoreRecord{}, fmt.Errorf("missing password")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return types.KeystoreRecord{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return types.KeystoreRecord{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, KdfIterations, dkLen, sha256.New)

	ciphertext, err := runCtr(derivedKey[:16], iv, secret)
	if err != nil {
		return types.KeystoreRecord{}, err
	}

	return types.KeystoreRecord{
		Address: address,
		ID:      uuid.NewString(),
		Version: Version,
		Crypto: types.CryptoParams{
			Cipher:       cipherAes128Ctr,
			Ciphertext:   hex.EncodeToString(ciphertext),
			CipherParams: types.CipherParams{IV: hex.EncodeToString(iv)},
			Kdf:          KdfPbkdf2,
			KdfParams: types.KdfParams{
				DkLen:      dkLen,
				Iterations: KdfIterations,
				Salt:       hex.EncodeToString(salt),
			},
			Mac: hex.EncodeToString(computeMac(derivedKey, ciphertext)),
		},
	}, nil
}

// Open re-derives the key from password and the record's own kdf parameters,
// verifies the mac and returns the decrypted secret. It fails closed: no
// plaintext is ever returned on a mac mismatch.
func Open(record types.KeystoreRecord, password string) ([]byte, error) {
	ciphertext, iv, salt, mac, err := decodeRecord(record)
	if err != nil {
		return nil, err
	}

	derivedKey, err := deriveKey(record.Crypto, []byte(password), salt)
	if err != nil {
		return nil, err
	}

	if !hmac.Equal(computeMac(derivedKey, ciphertext), mac) {
		return nil, ErrInvalidPassword
	}

	return runCtr(derivedKey[:16], iv, ciphertext)
}

func deriveKey(params types.CryptoParams, password, salt []byte) ([]byte, error) {
	kp := params.KdfParams
	keyLen := kp.DkLen
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: invalid dklen", ErrMalformedRecord)
	}

	switch params.Kdf {
	case KdfPbkdf2:
		if kp.Iterations <= 0 {
			return nil, fmt.Errorf("%w: invalid iteration count", ErrMalformedRecord)
		}
		return pbkdf2.Key(password, salt, kp.Iterations, keyLen, sha256.New), nil
	case KdfScrypt:
		if kp.N <= 1 || kp.R <= 0 || kp.P <= 0 {
			return nil, fmt.Errorf("%w: invalid scrypt params", ErrMalformedRecord)
		}
		key, err := scrypt.Key(password, salt, kp.N, kp.R, kp.P, keyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedRecord, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported kdf %q", ErrMalformedRecord, params.Kdf)
	}
}

func decodeRecord(record types.KeystoreRecord) (ciphertext, iv, salt, mac []byte, err error) {
	if record.Crypto.Cipher != cipherAes128Ctr {
		return nil, nil, nil, nil, fmt.Errorf(
			"%w: unsupported cipher %q", ErrMalformedRecord, record.Crypto.Cipher,
		)
	}

	ciphertext, err = hex.DecodeString(record.Crypto.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: bad ciphertext", ErrMalformedRecord)
	}
	iv, err = hex.DecodeString(record.Crypto.CipherParams.IV)
	if err != nil || len(iv) != ivLen {
		return nil, nil, nil, nil, fmt.Errorf("%w: bad iv", ErrMalformedRecord)
	}
	salt, err = hex.DecodeString(record.Crypto.KdfParams.Salt)
	if err != nil || len(salt) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: bad salt", ErrMalformedRecord)
	}
	mac, err = hex.DecodeString(record.Crypto.Mac)
	if err != nil || len(mac) != sha256.Size {
		return nil, nil, nil, nil, fmt.Errorf("%w: bad mac", ErrMalformedRecord)
	}
	return ciphertext, iv, salt, mac, nil
}

// computeMac returns SHA256(derivedKey || ciphertext). The derived key never
// leaves this package, so the digest acts as a keyed mac over the ciphertext.
func computeMac(derivedKey, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(derivedKey)
	h.Write(ciphertext)
	return h.Sum(nil)
}

// runCtr applies AES-128-CTR with iv as the initial counter block. CTR is its
// own inverse, so the same call encrypts and decrypts.
func runCtr(key, iv, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}
