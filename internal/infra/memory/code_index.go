package memory

import (
	"context"
	"sync"

	"quizlive/internal/domain"
)

// CodeIndex is an in-memory join-code table.
type CodeIndex struct {
	mu    sync.RWMutex
	codes map[string]string
}

func NewCodeIndex() *CodeIndex {
	return &CodeIndex{codes: make(map[string]string)}
}

func (i *CodeIndex) Put(_ context.Context, code, sessionID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, taken := i.codes[code]; taken {
		return false, nil
	}
	i.codes[code] = sessionID
	return true, nil
}

func (i *CodeIndex) Release(_ context.Context, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.codes, code)
	return nil
}

func (i *CodeIndex) Resolve(_ context.Context, code string) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	sessionID, ok := i.codes[code]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return sessionID, nil
}
