package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	keySize  = 32
	saltSize = 16
)

// ErrDecrypt is returned when a sealed secret cannot be opened, usually
// because the password is wrong.
var ErrDecrypt = errors.New("unable to decrypt wallet: wrong password or corrupted data")

// KDFParams are the scrypt cost parameters.
type KDFParams struct {
	N int
	R int
	P int
}

// DefaultKDFParams are the interactive-login scrypt parameters.
var DefaultKDFParams = KDFParams{N: 32768, R: 8, P: 1}

// Sealed is an AES-256-GCM ciphertext together with the nonce and the
// scrypt salt its key was derived with.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
}

// Vault seals and opens secrets with password-derived keys.
type Vault struct {
	params KDFParams
	rand   io.Reader
}

// NewVault creates a vault using params. Zero fields fall back to
// DefaultKDFParams.
func NewVault(params KDFParams) *Vault {
	if params.N == 0 {
		params.N = DefaultKDFParams.N
	}
	if params.R == 0 {
		params.R = DefaultKDFParams.R
	}
	if params.P == 0 {
		params.P = DefaultKDFParams.P
	}
	return &Vault{params: params, rand: rand.Reader}
}

// Seal encrypts secret under password with a fresh salt and nonce.
func (v *Vault) Seal(secret, password string) (Sealed, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(v.rand, salt); err != nil {
		return Sealed{}, fmt.Errorf("generating salt: %w", err)
	}

	aead, err := v.aead(password, salt)
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("generating nonce: %w", err)
	}

	return Sealed{
		Ciphertext: aead.Seal(nil, nonce, []byte(secret), nil),
		Nonce:      nonce,
		Salt:       salt,
	}, nil
}

// Open decrypts s with password.
func (v *Vault) Open(s Sealed, password string) (string, error) {
	aead, err := v.aead(password, s.Salt)
	if err != nil {
		return "", err
	}
	if len(s.Nonce) != aead.NonceSize() {
		return "", ErrDecrypt
	}

	plain, err := aead.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func (v *Vault) aead(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, v.params.N, v.params.R, v.params.P, keySize)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return aead, nil
}
