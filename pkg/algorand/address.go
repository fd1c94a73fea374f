package algorand

import (
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

const (
	// AddressLength is the length of an encoded address.
	AddressLength = 58

	// PublicKeySize is the size of an ed25519 public key.
	PublicKeySize = 32
)

// ErrInvalidAddress is returned for malformed addresses and public keys.
var ErrInvalidAddress = errors.New("invalid algorand address")

// EncodeAddress encodes a 32-byte public key as an address.
func EncodeAddress(publicKey []byte) (string, error) {
	if len(publicKey) != PublicKeySize {
		return "", fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidAddress, PublicKeySize, len(publicKey))
	}
	addr, err := types.EncodeAddress(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr, nil
}

// DecodeAddress returns the public key encoded in address after verifying
// its checksum.
func DecodeAddress(address string) ([]byte, error) {
	if len(address) != AddressLength {
		return nil, fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidAddress, AddressLength, len(address))
	}
	addr, err := types.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	// Reject non-canonical encodings whose trailing bits differ.
	if addr.String() != address {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidAddress)
	}
	return addr[:], nil
}

// IsValidAddress reports whether address is a well-formed address.
func IsValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// ApplicationAddress returns the escrow address of an application.
func ApplicationAddress(appID uint64) string {
	return crypto.GetApplicationAddress(appID).String()
}
