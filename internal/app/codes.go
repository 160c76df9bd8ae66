package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"quizlive/internal/domain"
)

// codeAlphabet omits characters that read ambiguously when written down
// (I, O, 0, 1).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

type codeGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newCodeGenerator() *codeGenerator {
	return &codeGenerator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *codeGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[g.rnd.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// FallbackCodeIndex resolves join codes through the primary index first and
// falls back to durable storage. A flushed cache or a restarted process never
// strands a code that was already printed on someone's screen.
type FallbackCodeIndex struct {
	primary  CodeIndex
	fallback CodeResolver
}

func NewFallbackCodeIndex(primary CodeIndex, fallback CodeResolver) *FallbackCodeIndex {
	return &FallbackCodeIndex{primary: primary, fallback: fallback}
}

func (f *FallbackCodeIndex) Put(ctx context.Context, code, sessionID string) (bool, error) {
	return f.primary.Put(ctx, code, sessionID)
}

func (f *FallbackCodeIndex) Release(ctx context.Context, code string) error {
	return f.primary.Release(ctx, code)
}

func (f *FallbackCodeIndex) Resolve(ctx context.Context, code string) (string, error) {
	sessionID, err := f.primary.Resolve(ctx, code)
	if err == nil {
		return sessionID, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return "", err
	}
	sessionID, err = f.fallback.ResolveCode(ctx, code)
	if err != nil {
		return "", err
	}
	// best-effort write-back so the next resolve stays off storage
	_, _ = f.primary.Put(ctx, code, sessionID)
	return sessionID, nil
}
