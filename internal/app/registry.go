package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quizlive/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Registry is the process-wide table of live sessions. A session id absent
// from memory is hydrated from the store on first touch; singleflight
// guarantees concurrent first-touches share one hydration and one resulting
// state object.
type Registry struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	sf        singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewRegistry builds a registry that evicts completed sessions retention
// after they finish.
func NewRegistry(store Store, retention time.Duration) *Registry {
	return &Registry{
		store:     store,
		retention: retention,
		now:       time.Now,
		sessions:  make(map[string]*liveSession),
	}
}

// get returns the live state for sessionID, hydrating from the store on miss.
func (r *Registry) get(ctx context.Context, sessionID string) (*liveSession, error) {
	r.mu.RLock()
	ls, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return ls, nil
	}

	result, err, _ := r.sf.Do(sessionID, func() (interface{}, error) {
		// Re-check in case another first-touch hydrated while we queued.
		r.mu.RLock()
		ls, ok := r.sessions[sessionID]
		r.mu.RUnlock()
		if ok {
			return ls, nil
		}

		sess, quiz, err := r.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		participants, err := r.store.ListParticipants(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		answers, err := r.store.ListAnswers(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		ls = newLiveSession(sess, quiz, r.now)
		ls.seed(participants, answers)

		r.mu.Lock()
		r.sessions[sessionID] = ls
		r.mu.Unlock()

		if sess.Status == domain.StatusCompleted {
			r.scheduleEviction(sessionID)
		}
		return ls, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*liveSession), nil
}

// put registers a freshly created session's live state.
func (r *Registry) put(ls *liveSession) {
	r.mu.Lock()
	r.sessions[ls.sess.ID] = ls
	r.mu.Unlock()
}

// scheduleEviction drops the in-memory state a fixed window after completion.
// Durable records are untouched; a late lookup simply re-hydrates.
func (r *Registry) scheduleEviction(sessionID string) {
	time.AfterFunc(r.retention, func() {
		r.evict(sessionID)
	})
}

func (r *Registry) evict(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	ls.mu.Lock()
	completed := ls.sess.Status == domain.StatusCompleted
	ls.mu.Unlock()
	if !completed {
		return
	}
	delete(r.sessions, sessionID)
	log.Printf("registry: evicted completed session %s", sessionID)
}

// Len reports how many sessions are live in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
