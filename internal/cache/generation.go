package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// DefaultGenerationTTL bounds how long an idle generation token lives
const DefaultGenerationTTL = 24 * time.Hour

// Generations hands out per-entity generation tokens. Views are cached under
// keys that embed the current token, and a writer bumps the token after it
// commits. A fill that raced the write lands under the old token and is never
// read again.
//
// Readers must take the token before reading the source of truth.
type Generations struct {
	cache Cache
	ttl   time.Duration
}

// NewGenerations creates a token store on c
func NewGenerations(c Cache, ttl time.Duration) *Generations {
	if ttl <= 0 {
		ttl = DefaultGenerationTTL
	}
	return &Generations{cache: c, ttl: ttl}
}

// Current returns the token for key, minting one if none exists
func (g *Generations) Current(ctx context.Context, key string) (string, error) {
	raw, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	return g.Bump(ctx, key)
}

// Bump replaces the token for key, orphaning every view cached under the old one
func (g *Generations) Bump(ctx context.Context, key string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate cache generation: %w", err)
	}
	token := id.String()
	if err := g.cache.Set(ctx, key, []byte(token), g.ttl); err != nil {
		return "", err
	}
	return token, nil
}
