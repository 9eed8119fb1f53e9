package marketplace

import (
	"context"
	"sync"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// FundsLedger moves purchase money between identities. Transfer is
// all-or-nothing: either both balances move or neither does.
type FundsLedger interface {
	BalanceOf(ctx context.Context, identity domain.Identity) (domain.Money, error)
	Deposit(ctx context.Context, identity domain.Identity, amount domain.Money) error
	Transfer(ctx context.Context, from, to domain.Identity, amount domain.Money) error
}

// InMemoryFunds is a process-local balance table guarded by a single mutex,
// which makes every Transfer trivially atomic.
type InMemoryFunds struct {
	mu       sync.Mutex
	balances map[domain.Identity]domain.Money
}

func NewInMemoryFunds() *InMemoryFunds {
	return &InMemoryFunds{balances: make(map[domain.Identity]domain.Money)}
}

func (f *InMemoryFunds) BalanceOf(_ context.Context, identity domain.Identity) (domain.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[identity], nil
}

func (f *InMemoryFunds) Deposit(_ context.Context, identity domain.Identity, amount domain.Money) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[identity] += amount
	return nil
}

func (f *InMemoryFunds) Transfer(_ context.Context, from, to domain.Identity, amount domain.Money) error {
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[from] < amount {
		return dErrors.New(dErrors.CodeInsufficientFunds, "balance too low")
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}
