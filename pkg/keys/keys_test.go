package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
)

func TestParsePublicRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	pem, err := SerializePublic(&priv.PublicKey)
	if err != nil {
		t.Fatalf("SerializePublic failed: %v", err)
	}

	key, err := ParsePublic(pem)
	if err != nil {
		t.Fatalf("ParsePublic failed: %v", err)
	}
	if _, ok := key.(*rsa.PublicKey); !ok {
		t.Errorf("expected *rsa.PublicKey, got %T", key)
	}
}

func TestParsePublicECDSA(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	pem, err := SerializePublic(&priv.PublicKey)
	if err != nil {
		t.Fatalf("SerializePublic failed: %v", err)
	}

	if _, err := ParsePublic(pem); err != nil {
		t.Errorf("ParsePublic failed: %v", err)
	}
}

func TestParsePublicGarbage(t *testing.T) {
	cases := []string{
		"",
		"bogus",
		"-----BEGIN PUBLIC KEY-----\nnot base64 at all\n-----END PUBLIC KEY-----",
		"-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----",
	}

	for _, c := range cases {
		_, err := ParsePublic(c)
		if !errors.Is(err, ErrCannotDecode) {
			t.Errorf("expected ErrCannotDecode for %q, got %v", c, err)
		}
	}
}

func TestSerializePublicUnknownType(t *testing.T) {
	if _, err := SerializePublic("not a key"); err == nil {
		t.Error("expected error for unknown key type, got nil")
	}
}
