package algorand

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
)

// SignatureSize is the size of an ed25519 signature.
const SignatureSize = 64

// VerifyBytes reports whether signature is address's signature over
// message, domain-separated with the "MX" prefix the way wallets sign
// arbitrary bytes.
func VerifyBytes(address string, message, signature []byte) (bool, error) {
	key, err := DecodeAddress(address)
	if err != nil {
		return false, err
	}
	if len(signature) != SignatureSize {
		return false, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(signature))
	}
	return crypto.VerifyBytes(key, message, signature), nil
}
