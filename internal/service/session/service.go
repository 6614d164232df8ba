package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ErrInvalidSession is returned for ids this service could not have issued.
var ErrInvalidSession = errors.New("invalid session id")

const idBytes = 32

// Service issues opaque browsing-session ids that key a visitor's cart. The id
// is the only credential for the cart, so it carries 256 bits of randomness.
type Service struct{}

func New() *Service {
	return &Service{}
}

func (s *Service) Issue() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate checks that id has the shape of an issued id.
func (s *Service) Validate(id string) error {
	if len(id) != base64.RawURLEncoding.EncodedLen(idBytes) {
		return ErrInvalidSession
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) != idBytes {
		return ErrInvalidSession
	}
	return nil
}
