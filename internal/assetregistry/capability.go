package assetregistry

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/secrets"
)

// Capability authorizes the privileged registry mutations (mint, market info,
// executed transfers). Only the component that bound itself with the wiring
// secret holds one; the token is unexported so a Capability cannot be forged
// outside this package.
type Capability struct {
	token string
}

// IsZero reports whether the capability was never bound.
func (c Capability) IsZero() bool {
	return c.token == ""
}

// binder implements the one-shot capability handshake. The service is
// constructed with a bcrypt hash of the wiring secret; whoever presents the
// matching plaintext first receives the capability, and the binding can never
// be repeated or transferred.
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

func (b *binder) check(c Capability) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.bound || c.token == "" || c.token != b.token {
		return dErrors.New(dErrors.CodeUnauthorized, "missing or invalid registry capability")
	}
	return nil
}
