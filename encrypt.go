package shield

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encryptor handles encryption/decryption operations for one key.
// Protection rules select the constructor; key material comes from the
// Keyring at a specific version.
type Encryptor interface {
	// Encrypt encrypts plaintext and returns ciphertext.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt decrypts ciphertext and returns plaintext.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// encryptorFor builds the encryptor a rule calls for, bound to key material.
func encryptorFor(rule ProtectionRule, key []byte) (Encryptor, error) {
	switch EncryptAlgo(rule.Algorithm) {
	case EncryptAES:
		if rule.Deterministic {
			return DeterministicAES(key)
		}
		return AES(key)
	case EncryptChaCha20:
		return ChaCha20(key)
	case EncryptEnvelope:
		return Envelope(key)
	default:
		return nil, fmt.Errorf("%w: no encryptor for algorithm %q", ErrEncrypt, rule.Algorithm)
	}
}

// decryptorFor builds the decryptor for a protected field's tagged
// algorithm. Deterministic and randomized AES share a ciphertext layout
// (nonce prepended), so one decryptor serves both.
func decryptorFor(algo EncryptAlgo, key []byte) (Encryptor, error) {
	switch algo {
	case EncryptAES:
		return AES(key)
	case EncryptChaCha20:
		return ChaCha20(key)
	case EncryptEnvelope:
		return Envelope(key)
	default:
		return nil, fmt.Errorf("%w: no decryptor for algorithm %q", ErrDecrypt, algo)
	}
}

// aesEncryptor implements AES-GCM encryption with a random nonce.
type aesEncryptor struct {
	gcm cipher.AEAD
}

// AES returns an AES-GCM encryptor.
// Key must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
func AES(key []byte) (Encryptor, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &aesEncryptor{gcm: gcm}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("%w: must be 16, 24, or 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

func (e *aesEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	// Prepend nonce to ciphertext
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *aesEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return openPrefixedNonce(e.gcm, ciphertext)
}

// openPrefixedNonce decrypts a ciphertext carrying its nonce as a prefix.
func openPrefixedNonce(aead cipher.AEAD, ciphertext []byte) ([]byte, error) {
	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextShort
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return plaintext, nil
}

// sivEncryptor implements deterministic AES-GCM: the nonce is derived from
// the plaintext, so equal plaintexts under the same key produce equal
// ciphertexts. Use only for fields that need equality matching on the
// protected form.
type sivEncryptor struct {
	gcm cipher.AEAD
	key []byte
}

// DeterministicAES returns a deterministic AES-GCM encryptor. The nonce is
// HMAC-SHA256(key, plaintext), truncated, and prepended like the randomized
// variant, so AES() decrypts its output.
func DeterministicAES(key []byte) (Encryptor, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &sivEncryptor{gcm: gcm, key: append([]byte(nil), key...)}, nil
}

func (e *sivEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, e.key)
	mac.Write(plaintext)
	nonce := mac.Sum(nil)[:e.gcm.NonceSize()]

	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *sivEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return openPrefixedNonce(e.gcm, ciphertext)
}

// chachaEncryptor implements XChaCha20-Poly1305 with a random nonce.
type chachaEncryptor struct {
	aead cipher.AEAD
}

// ChaCha20 returns an XChaCha20-Poly1305 encryptor.
// Key must be 32 bytes.
func ChaCha20(key []byte) (Encryptor, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidKeySize, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &chachaEncryptor{aead: aead}, nil
}

func (e *chachaEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *chachaEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return openPrefixedNonce(e.aead, ciphertext)
}

// envelopeEncryptor implements envelope encryption.
// A random data key is generated per operation, encrypted with the master
// key, and prepended to the ciphertext.
type envelopeEncryptor struct {
	masterGCM   cipher.AEAD
	dataKeySize int
}

// Envelope returns an envelope encryptor using a master key.
// Master key must be 16, 24, or 32 bytes.
func Envelope(masterKey []byte) (Encryptor, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	return &envelopeEncryptor{
		masterGCM:   gcm,
		dataKeySize: 32, // AES-256 data keys
	}, nil
}

func (e *envelopeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	// Generate random data key
	dataKey := make([]byte, e.dataKeySize)
	if _, err := io.ReadFull(rand.Reader, dataKey); err != nil {
		return nil, err
	}

	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}

	dataNonce := make([]byte, dataGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, dataNonce); err != nil {
		return nil, err
	}

	encryptedData := dataGCM.Seal(dataNonce, dataNonce, plaintext, nil)

	// Encrypt data key with master key
	masterNonce := make([]byte, e.masterGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, masterNonce); err != nil {
		return nil, err
	}

	encryptedKey := e.masterGCM.Seal(masterNonce, masterNonce, dataKey, nil)

	// Format: [2 bytes key len][encrypted key][encrypted data]
	if len(encryptedKey) > 65535 {
		return nil, errors.New("encrypted key exceeds maximum length")
	}
	keyLen := uint16(len(encryptedKey)) // #nosec G115 -- bounds checked above
	result := make([]byte, 2+len(encryptedKey)+len(encryptedData))
	result[0] = byte(keyLen >> 8)
	result[1] = byte(keyLen)
	copy(result[2:], encryptedKey)
	copy(result[2+len(encryptedKey):], encryptedData)

	return result, nil
}

func (e *envelopeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2 {
		return nil, ErrCiphertextShort
	}

	// Parse key length
	keyLen := int(uint16(ciphertext[0])<<8 | uint16(ciphertext[1]))
	if len(ciphertext) < 2+keyLen {
		return nil, ErrCiphertextShort
	}

	encryptedKey := ciphertext[2 : 2+keyLen]
	encryptedData := ciphertext[2+keyLen:]

	// Decrypt data key with master key
	masterNonceSize := e.masterGCM.NonceSize()
	if len(encryptedKey) < masterNonceSize {
		return nil, ErrCiphertextShort
	}

	masterNonce := encryptedKey[:masterNonceSize]
	encryptedKey = encryptedKey[masterNonceSize:]

	dataKey, err := e.masterGCM.Open(nil, masterNonce, encryptedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt data key: %w", ErrDecrypt, err)
	}

	// Decrypt data with data key
	dataGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}

	return openPrefixedNonce(dataGCM, encryptedData)
}
