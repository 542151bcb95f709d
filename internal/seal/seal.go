package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrBadSignature      = errors.New("signature verification failed")
)

// Sealer performs field-level encryption of clinical evaluation values
// and signs the canonicalized plaintext record, so stored assessments
// are both unreadable at rest and tamper-evident.
type Sealer struct {
	aead    cipher.AEAD
	signKey []byte
}

// New creates a sealer from a 32-byte AES key and an HMAC signing key.
func New(encKey, signKey []byte) (*Sealer, error) {
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(signKey) == 0 {
		return nil, errors.New("empty signing key")
	}
	return &Sealer{aead: aead, signKey: signKey}, nil
}

// EncryptField encrypts a UTF-8 string and returns base64 ciphertext
// with the nonce prepended.
func (s *Sealer) EncryptField(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField.
func (s *Sealer) DecryptField(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < s.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

// Sign returns a base64 HMAC-SHA256 signature over the canonicalized
// record content.
func (s *Sealer) Sign(content map[string]string) (string, error) {
	canonical, err := Canonicalize(content)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.signKey)
	mac.Write(canonical)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a signature produced by Sign.
func (s *Sealer) Verify(content map[string]string, signature string) error {
	want, err := s.Sign(content)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// Canonicalize serializes the record with sorted keys and no extra
// whitespace, so the signature is verifiable regardless of field
// ordering in the database.
func Canonicalize(content map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([][2]string, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, [2]string{k, content[k]})
	}
	return json.Marshal(ordered)
}
