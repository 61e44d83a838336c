package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/aq2208/campuspay-terminal/configs"
)

// ErrNoKeyMaterial means crypto is not configured; callers fall back to
// keeping secrets in memory only.
var ErrNoKeyMaterial = errors.New("no aes key configured")

type CryptoMaterial struct {
	KeyID  string
	AESKey []byte
	RSAPub *rsa.PublicKey
	RSAPri *rsa.PrivateKey
}

func NewCryptoMaterial(c configs.Config) (*CryptoMaterial, error) {
	cm, err := LoadCryptoMaterial(c)
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// LoadCryptoMaterial reads the AES key (required) and the RSA keys (each optional).
func LoadCryptoMaterial(c configs.Config) (CryptoMaterial, error) {
	cc := c.CryptoConfig
	if cc.AES256B64 == "" {
		return CryptoMaterial{}, ErrNoKeyMaterial
	}
	key, err := base64.RawURLEncoding.DecodeString(cc.AES256B64)
	if err != nil {
		return CryptoMaterial{}, fmt.Errorf("decode aes256_b64url: %w", err)
	}
	if len(key) != 32 {
		return CryptoMaterial{}, fmt.Errorf("aes key must be 32 bytes, got %d", len(key))
	}

	var pub *rsa.PublicKey
	if cc.RSAPubPEM != "" {
		if pub, err = parseRSAPublicKeyFromPEM([]byte(cc.RSAPubPEM)); err != nil {
			return CryptoMaterial{}, fmt.Errorf("parse rsa pub pem: %w", err)
		}
	}
	var pri *rsa.PrivateKey
	if cc.RSAPriPEM != "" {
		if pri, err = parseRSAPrivateKeyFromPEM([]byte(cc.RSAPriPEM)); err != nil {
			return CryptoMaterial{}, fmt.Errorf("parse rsa pri pem: %w", err)
		}
	}

	id := cc.KeyID
	if id == "" {
		id = "v1"
	}
	return CryptoMaterial{KeyID: id, AESKey: key, RSAPub: pub, RSAPri: pri}, nil
}

func parseRSAPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no pem block")
	}
	pubAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not rsa public key")
	}
	return pub, nil
}

func parseRSAPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no pem block in RSA private key")
	}

	// PKCS#8 first, then PKCS#1
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("not an RSA private key in PKCS#8")
	}
	rsaKey, err2 := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, fmt.Errorf("parse RSA private key failed (PKCS#8: %v, PKCS#1: %v)", err, err2)
	}
	return rsaKey, nil
}
