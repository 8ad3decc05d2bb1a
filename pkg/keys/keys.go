// Package keys decodes device public key material submitted with
// admission requests.
package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const pubKeyBlockType = "PUBLIC KEY"

// ErrCannotDecode is returned for key material that is not a valid
// PEM-encoded PKIX public key. The message is part of the API contract.
var ErrCannotDecode = errors.New("cannot decode public key")

// ParsePublic decodes a PEM-encoded PKIX public key.
func ParsePublic(pubkey string) (interface{}, error) {
	block, _ := pem.Decode([]byte(pubkey))
	if block == nil || block.Type != pubKeyBlockType {
		return nil, ErrCannotDecode
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, ErrCannotDecode
	}

	return key, nil
}

// SerializePublic encodes a public key as a PEM PKIX block.
func SerializePublic(key interface{}) (string, error) {
	switch key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
	default:
		return "", fmt.Errorf("unrecognizable public key type %T", key)
	}

	asn1, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	out := pem.EncodeToMemory(&pem.Block{
		Type:  pubKeyBlockType,
		Bytes: asn1,
	})
	if out == nil {
		return "", errors.New("failed to encode public key")
	}

	return string(out), nil
}
