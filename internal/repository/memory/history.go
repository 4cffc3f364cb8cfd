package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
)

type historyRepositoryImpl struct {
	store *Store
}

func NewHistoryRepository(store *Store) application.HistoryRepository {
	return &historyRepositoryImpl{store: store}
}

func (r *historyRepositoryImpl) Create(ctx context.Context, entry application.HistoryEntry) (application.HistoryEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[entry.ApplicationID]; !ok {
		return application.HistoryEntry{}, application.ErrApplicationNotFound
	}
	if _, exists := s.entryOwner[entry.ID]; exists {
		return application.HistoryEntry{}, fmt.Errorf("history entry %s already exists: %w", entry.ID, application.ErrInconsistentState)
	}
	if entry.IsActive {
		for _, e := range s.history[entry.ApplicationID] {
			if e.IsActive && e.Stage == entry.Stage {
				return application.HistoryEntry{}, fmt.Errorf("stage %s already has active entry %s: %w", entry.Stage, e.ID, application.ErrInconsistentState)
			}
		}
	}

	stored := cloneEntry(entry)
	s.history[entry.ApplicationID] = append(s.history[entry.ApplicationID], stored)
	s.entryOwner[entry.ID] = entry.ApplicationID

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entries := s.history[entry.ApplicationID]
		for i := range entries {
			if entries[i].ID == entry.ID {
				s.history[entry.ApplicationID] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		delete(s.entryOwner, entry.ID)
	})

	return cloneEntry(stored), nil
}

func (r *historyRepositoryImpl) GetByID(ctx context.Context, id string) (application.HistoryEntry, error) {
	s := r.store
	s.mu.RLock()
	appID, ok := s.entryOwner[id]
	s.mu.RUnlock()
	if !ok {
		return application.HistoryEntry{}, application.ErrHistoryEntryNotFound
	}

	var (
		entry application.HistoryEntry
		found bool
	)
	s.withAppLock(ctx, appID, func() {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if i := indexOf(s.history[appID], id); i >= 0 {
			entry = cloneEntry(s.history[appID][i])
			found = true
		}
	})
	if !found {
		return application.HistoryEntry{}, application.ErrHistoryEntryNotFound
	}
	return entry, nil
}

func (r *historyRepositoryImpl) ListByApplication(ctx context.Context, applicationID string) ([]application.HistoryEntry, error) {
	var out []application.HistoryEntry
	r.store.withAppLock(ctx, applicationID, func() {
		out = r.store.snapshot(applicationID, func(application.HistoryEntry) bool { return true })
	})
	return out, nil
}

func (r *historyRepositoryImpl) ListActiveByStage(ctx context.Context, applicationID, stage string) ([]application.HistoryEntry, error) {
	var out []application.HistoryEntry
	r.store.withAppLock(ctx, applicationID, func() {
		out = r.store.snapshot(applicationID, func(e application.HistoryEntry) bool {
			return e.IsActive && e.Stage == stage
		})
	})
	return out, nil
}

func (r *historyRepositoryImpl) UpdateReview(ctx context.Context, entry application.HistoryEntry) error {
	return r.store.mutateEntry(ctx, entry.ID, func(e *application.HistoryEntry) {
		e.CompletedAt = cloneTime(entry.CompletedAt)
		e.Score = cloneFloat(entry.Score)
		e.Notes = entry.Notes
		if entry.Decision != nil {
			d := *entry.Decision
			e.Decision = &d
		} else {
			e.Decision = nil
		}
		e.ReviewedBy = cloneString(entry.ReviewedBy)
		e.ReviewedAt = cloneTime(entry.ReviewedAt)
	})
}

func (r *historyRepositoryImpl) Deactivate(ctx context.Context, id, deactivatedBy string, at time.Time) error {
	return r.store.mutateEntry(ctx, id, func(e *application.HistoryEntry) {
		e.IsActive = false
		e.DeactivatedBy = &deactivatedBy
		e.DeactivatedAt = &at
	})
}

// mutateEntry applies fn to an active entry. Inactive entries are frozen.
func (s *Store) mutateEntry(ctx context.Context, id string, fn func(*application.HistoryEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appID, ok := s.entryOwner[id]
	if !ok {
		return application.ErrHistoryEntryNotFound
	}
	entries := s.history[appID]
	i := indexOf(entries, id)
	if i < 0 {
		return application.ErrHistoryEntryNotFound
	}
	if !entries[i].IsActive {
		return application.ErrAlreadySuperseded
	}

	prev := cloneEntry(entries[i])
	fn(&entries[i])

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if j := indexOf(s.history[appID], id); j >= 0 {
			s.history[appID][j] = prev
		}
	})
	return nil
}

func (s *Store) snapshot(applicationID string, keep func(application.HistoryEntry) bool) []application.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []application.HistoryEntry{}
	for _, e := range s.history[applicationID] {
		if keep(e) {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

func indexOf(entries []application.HistoryEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
