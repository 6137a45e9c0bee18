package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost matches the cost stored hashes were created with.
const DefaultBcryptCost = 12

// CredentialVerifier hashes passwords and checks them against stored hashes.
type CredentialVerifier interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, hash, password string) (bool, error)
}

// BcryptHasher is a CredentialVerifier backed by bcrypt. At most
// `concurrency` hashes run at once; callers wait for a slot or for ctx.
type BcryptHasher struct {
	cost  int
	slots *semaphore.Weighted
}

// Ensure BcryptHasher implements CredentialVerifier
var _ CredentialVerifier = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher. Out-of-range values fall back to
// DefaultBcryptCost and a single slot.
func NewBcryptHasher(cost int, concurrency int64) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BcryptHasher{cost: cost, slots: semaphore.NewWeighted(concurrency)}
}

// Hash returns the bcrypt hash of password.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash slot: %w", err)
	}
	defer h.slots.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A mismatch is not an error.
func (h *BcryptHasher) Verify(ctx context.Context, hash, password string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hash slot: %w", err)
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("compare password: %w", err)
}
