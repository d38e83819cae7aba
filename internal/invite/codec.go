// Package invite encodes event ids into shareable, forgery-resistant
// invite tokens and decodes them back.
package invite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
)

// tagLen is the number of HMAC-SHA256 bytes appended to the payload. The
// full token must stay well under Telegram's 64-character start parameter.
const tagLen = 10

var (
	// ErrInvalidToken indicates a token that was not produced by Encode
	// with the same key, or was corrupted in transit.
	ErrInvalidToken = errors.New("invalid invite token")
)

// Codec produces stateless invite tokens. Encoding is deterministic: the
// same event id always yields the same token for a given key.
type Codec struct {
	key []byte
}

// NewCodec builds a codec keyed with secret. The secret must be non-empty;
// it is what makes tokens unforgeable.
func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("invite secret is required")
	}
	return &Codec{key: []byte(secret)}, nil
}

// Encode returns a compact URL-safe token for an event id.
func (c *Codec) Encode(eventID int64) string {
	payload := binary.AppendUvarint(nil, uint64(eventID))
	token := append(payload, c.tag(payload)...)
	return base64.RawURLEncoding.EncodeToString(token)
}

// Decode inverts Encode. Any malformed or tampered token fails with
// ErrInvalidToken; a bad token is never mapped to a valid-looking id.
func (c *Codec) Decode(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if len(raw) <= tagLen {
		return 0, ErrInvalidToken
	}
	payload, tag := raw[:len(raw)-tagLen], raw[len(raw)-tagLen:]
	if !hmac.Equal(tag, c.tag(payload)) {
		return 0, ErrInvalidToken
	}
	eventID, n := binary.Uvarint(payload)
	if n != len(payload) || eventID == 0 || eventID > 1<<62 {
		return 0, ErrInvalidToken
	}
	return int64(eventID), nil
}

func (c *Codec) tag(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)[:tagLen]
}
