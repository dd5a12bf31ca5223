package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionRepository keeps encoded sessions in process memory. It uses the
// same encoding as the redis repository, so callers never share a *Game with it.
type MemorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryRecord
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryRecord),
	}
}

func (that *MemorySessionRepository) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	record := memoryRecord{data: data}
	if that.ttl > 0 {
		record.expiresAt = that.now().Add(that.ttl)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[session.ID]; !ok {
		that.purgeExpiredLocked()
	}

	that.sessions[session.ID] = record

	return nil
}

// Len - returns the number of stored sessions, expired ones included until they are purged.
func (that *MemorySessionRepository) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.sessions)
}

func (that *MemorySessionRepository) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	record, ok := that.lookupLocked(id)
	that.mu.Unlock()

	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	return decodeSession(record.data)
}

func (that *MemorySessionRepository) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.lookupLocked(id); !ok {
		return apperror.ErrSessionNotFound
	}

	delete(that.sessions, id)

	return nil
}

// lookupLocked - returns a live record, dropping it if it has expired.
func (that *MemorySessionRepository) lookupLocked(id string) (memoryRecord, bool) {
	record, ok := that.sessions[id]
	if !ok {
		return memoryRecord{}, false
	}

	if !record.expiresAt.IsZero() && !that.now().Before(record.expiresAt) {
		delete(that.sessions, id)
		return memoryRecord{}, false
	}

	return record, true
}

// purgeExpiredLocked - drops abandoned sessions. It runs whenever a new session is stored.
func (that *MemorySessionRepository) purgeExpiredLocked() {
	if that.ttl <= 0 {
		return
	}

	now := that.now()
	for id, record := range that.sessions {
		if !now.Before(record.expiresAt) {
			delete(that.sessions, id)
		}
	}
}
