package guardian

import (
	"crypto/ed25519"
)

// Verifier decides whether a creation payload carries a valid guardian
// signature
type Verifier interface {
	Verify(p Payload, signature []byte) bool
}

// KeyVerifier accepts signatures from a single guardian key
type KeyVerifier struct {
	PublicKey ed25519.PublicKey
	ChainID   string
}

var _ Verifier = (*KeyVerifier)(nil)

// NewKeyVerifier creates a verifier for pub on chainID
func NewKeyVerifier(pub ed25519.PublicKey, chainID string) *KeyVerifier {
	return &KeyVerifier{PublicKey: pub, ChainID: chainID}
}

// Verify implements Verifier
func (v *KeyVerifier) Verify(p Payload, signature []byte) bool {
	if len(v.PublicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(v.PublicKey, p.SignBytes(v.ChainID), signature)
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(p Payload, signature []byte) bool

// Verify implements Verifier
func (f VerifierFunc) Verify(p Payload, signature []byte) bool {
	return f(p, signature)
}

// AcceptAll is a Verifier for development setups without a guardian
var AcceptAll Verifier = VerifierFunc(func(Payload, []byte) bool { return true })
