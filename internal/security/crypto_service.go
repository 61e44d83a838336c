package security

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

var (
	ErrSigningDisabled = errors.New("signing not configured (no RSA private key)")
	ErrVerifyDisabled  = errors.New("signature verification not configured (no RSA public key)")
)

// CryptoService seals data at rest and signs messages that leave the terminal.
type CryptoService interface {
	KeyID() string
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) error
	CanSign() bool
	CanVerify() bool
}

type cryptoService struct {
	keyID     string
	aead      cipher.AEAD // AES-256-GCM
	nonceSize int
	rsaPub    *rsa.PublicKey  // optional; nil => no verification
	rsaPriv   *rsa.PrivateKey // optional; nil => no signing
}

func NewCryptoService(cm *CryptoMaterial) (CryptoService, error) {
	if len(cm.AESKey) != 32 {
		return nil, fmt.Errorf("aes key must be 32 bytes, got %d", len(cm.AESKey))
	}
	block, err := aes.NewCipher(cm.AESKey)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	pub := cm.RSAPub
	if pub == nil && cm.RSAPri != nil {
		pub = &cm.RSAPri.PublicKey
	}
	return &cryptoService{
		keyID:     cm.KeyID,
		aead:      aead,
		nonceSize: aead.NonceSize(),
		rsaPub:    pub,
		rsaPriv:   cm.RSAPri,
	}, nil
}

func (cs *cryptoService) KeyID() string   { return cs.keyID }
func (cs *cryptoService) CanSign() bool   { return cs.rsaPriv != nil }
func (cs *cryptoService) CanVerify() bool { return cs.rsaPub != nil }

// Seal returns nonce || ciphertext. The key id is bound as additional data so
// a blob sealed under another key never opens.
func (cs *cryptoService) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, cs.nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}
	out := make([]byte, 0, cs.nonceSize+len(plaintext)+cs.aead.Overhead())
	out = append(out, nonce...)
	return cs.aead.Seal(out, nonce, plaintext, []byte(cs.keyID)), nil
}

func (cs *cryptoService) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < cs.nonceSize+cs.aead.Overhead() {
		return nil, errors.New("sealed data too short")
	}
	nonce, ct := sealed[:cs.nonceSize], sealed[cs.nonceSize:]
	pt, err := cs.aead.Open(nil, nonce, ct, []byte(cs.keyID))
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return pt, nil
}

func (cs *cryptoService) Sign(payload []byte) ([]byte, error) {
	if cs.rsaPriv == nil {
		return nil, ErrSigningDisabled
	}
	sum := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, cs.rsaPriv, crypto.SHA256, sum[:])
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	return sig, nil
}

func (cs *cryptoService) Verify(payload, signature []byte) error {
	if cs.rsaPub == nil {
		return ErrVerifyDisabled
	}
	sum := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(cs.rsaPub, crypto.SHA256, sum[:], signature); err != nil {
		return fmt.Errorf("rsa verify: %w", err)
	}
	return nil
}
