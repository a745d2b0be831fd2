package rest

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Header is the signed envelope around every payload.
type Header struct {
	Type         string `json:"type"`
	Timestamp    int64  `json:"timestamp"`
	ExpiryWindow int64  `json:"expiry_window"`
}

// Signer holds a Solana-style ed25519 keypair. The base58 public key is the
// account identifier.
type Signer struct {
	key     ed25519.PrivateKey
	account string
}

// NewSigner accepts a base58 64-byte keypair or a 32-byte seed.
func NewSigner(encoded string) (*Signer, error) {
	clean := strings.TrimSpace(encoded)
	if clean == "" {
		return nil, errors.New("private key is required")
	}
	raw := base58.Decode(clean)
	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("private key must decode to %d or %d bytes, got %d", ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}
	pub := key.Public().(ed25519.PublicKey)
	return &Signer{key: key, account: base58.Encode(pub)}, nil
}

func (s *Signer) Account() string {
	return s.account
}

// Sign returns the canonical message and its base58 signature.
func (s *Signer) Sign(header Header, payload any) (string, string, error) {
	message, err := prepareMessage(header, payload)
	if err != nil {
		return "", "", err
	}
	sig := ed25519.Sign(s.key, []byte(message))
	return message, base58.Encode(sig), nil
}

// prepareMessage renders {header..., "data": payload} as compact JSON with
// keys sorted at every depth.
func prepareMessage(header Header, payload any) (string, error) {
	if header.Type == "" || header.Timestamp == 0 || header.ExpiryWindow == 0 {
		return "", errors.New("header must have type, timestamp and expiry_window")
	}
	data, err := normalize(payload)
	if err != nil {
		return "", fmt.Errorf("normalize payload: %w", err)
	}
	message := map[string]any{
		"type":          header.Type,
		"timestamp":     header.Timestamp,
		"expiry_window": header.ExpiryWindow,
		"data":          data,
	}
	return compactJSON(message)
}

// normalize round-trips v through JSON so structs become maps, which
// encoding/json always writes with sorted keys.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
