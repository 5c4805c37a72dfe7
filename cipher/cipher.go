// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/danielhkuo/ballotbox/apperr"
)

const (
	version = "v1"

	saltLen = 16
	keyLen  = 32 // AES-256

	// PBKDF2 rounds. The PIN space is at most 10^6 values, so this slows a
	// brute force down but cannot make the PIN a real secret.
	kdfIterations = 10_000

	minKeyDigits = 4
	maxKeyDigits = 6
)

var (
	ErrInvalidKey = apperr.New(apperr.CodeInvalidKey, "Decryption key does not match this ballot")
	ErrMalformed  = apperr.New(apperr.CodeInvalidBallot, "Ballot ciphertext is malformed")
)

// ValidateKey checks that key is a 4-6 digit PIN.
func ValidateKey(key string) error {
	if len(key) < minKeyDigits || len(key) > maxKeyDigits {
		return apperr.New(apperr.CodeInvalidInput, "encryptionKey must be a 4-6 digit PIN")
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return apperr.New(apperr.CodeInvalidInput, "encryptionKey must be a 4-6 digit PIN")
		}
	}
	return nil
}

// ElectionSalt is the PBKDF2 salt shared by every ballot of one election.
// Sharing it lets a tally stretch the PIN once instead of once per ballot;
// each ballot still gets its own random nonce.
func ElectionSalt(electionID string) []byte {
	sum := sha256.Sum256([]byte("ballotbox/election-salt\x00" + electionID))
	return sum[:saltLen]
}

// Key is a PIN stretched for one salt. Deriving it is the expensive step;
// Seal and Open are cheap and safe for concurrent use.
type Key struct {
	salt []byte
	aead stdcipher.AEAD
}

// DeriveKey stretches pin with salt. It does not check the PIN format:
// a key that was never a valid PIN simply opens nothing.
func DeriveKey(pin string, salt []byte) (*Key, error) {
	if len(salt) != saltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", saltLen, len(salt))
	}
	derived := pbkdf2.Key([]byte(pin), salt, kdfIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Key{salt: bytes.Clone(salt), aead: gcm}, nil
}

// Seal encrypts plaintext with a fresh random nonce, so sealing the same
// choice twice never yields the same ciphertext.
//
// Output: "v1:" + base64(salt || nonce || sealed).
func (k *Key) Seal(plaintext string) (string, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+k.aead.Overhead())
	out = append(out, k.salt...)
	out = append(out, nonce...)
	out = k.aead.Seal(out, nonce, []byte(plaintext), nil)

	return version + ":" + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open decrypts a ciphertext produced by Seal. A ciphertext sealed under a
// different PIN or salt returns ErrInvalidKey; it never yields garbage
// plaintext.
func (k *Key) Open(ciphertext string) (string, error) {
	salt, nonce, sealed, err := split(ciphertext, k.aead)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(salt, k.salt) {
		return "", ErrInvalidKey
	}
	plaintext, err := k.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidKey
	}
	return string(plaintext), nil
}

func split(ciphertext string, aead stdcipher.AEAD) (salt, nonce, sealed []byte, err error) {
	prefix, body, ok := strings.Cut(ciphertext, ":")
	if !ok || prefix != version {
		return nil, nil, nil, ErrMalformed
	}
	raw, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil {
		return nil, nil, nil, ErrMalformed
	}
	if len(raw) < saltLen+aead.NonceSize()+aead.Overhead() {
		return nil, nil, nil, ErrMalformed
	}
	rest := raw[saltLen:]
	return raw[:saltLen], rest[:aead.NonceSize()], rest[aead.NonceSize():], nil
}

// Encrypt validates pin and seals plaintext under it with salt. Callers
// sealing many ballots should DeriveKey once and reuse it.
func Encrypt(plaintext, pin string, salt []byte) (string, error) {
	if err := ValidateKey(pin); err != nil {
		return "", err
	}
	k, err := DeriveKey(pin, salt)
	if err != nil {
		return "", err
	}
	return k.Seal(plaintext)
}

// Decrypt opens a single ciphertext, deriving the key from the salt it
// carries.
func Decrypt(ciphertext, pin string) (string, error) {
	prefix, body, ok := strings.Cut(ciphertext, ":")
	if !ok || prefix != version {
		return "", ErrMalformed
	}
	raw, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil || len(raw) < saltLen {
		return "", ErrMalformed
	}
	k, err := DeriveKey(pin, raw[:saltLen])
	if err != nil {
		return "", err
	}
	return k.Open(ciphertext)
}

// Digest returns the hex SHA-256 of input (64 characters).
func Digest(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// ReceiptDigest derives the voter's receipt from who voted, where, and when.
// It is one-way and carries nothing about the chosen candidate.
func ReceiptDigest(identityHash, electionID string, timestamp time.Time) string {
	h := sha256.New()
	h.Write([]byte(identityHash))
	h.Write([]byte{0})
	h.Write([]byte(electionID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(timestamp.UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}
