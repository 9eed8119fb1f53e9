package warranty

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/secrets"
)

// Capability authorizes warranty issuance by the marketplace coordinator.
// The token is unexported so a Capability cannot be forged outside this
// package; it is minted once by the one-shot binding handshake.
type Capability struct {
	token string
}

// IsZero reports whether the capability was never bound.
func (c Capability) IsZero() bool {
	return c.token == ""
}

type binder struct {
	mu         sync.Mutex
	secretHash string
	bound      bool
	token      string
}

func newBinder(secretHash string) *binder {
	return &binder{secretHash: secretHash}
}

func (b *binder) bind(secret string) (Capability, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bound {
		return Capability{}, dErrors.New(dErrors.CodeConflict, "capability already bound")
	}
	if b.secretHash == "" {
		return Capability{}, dErrors.New(dErrors.CodeInternal, "no binding secret configured")
	}
	if err := secrets.Verify(secret, b.secretHash); err != nil {
		return Capability{}, err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Capability{}, fmt.Errorf("could not mint capability token: %w", err)
	}
	b.token = base64.RawURLEncoding.EncodeToString(buf)
	b.bound = true
	return Capability{token: b.token}, nil
}

func (b *binder) holds(c Capability) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound && c.token != "" && c.token == b.token
}
