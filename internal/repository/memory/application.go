package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
)

type applicationRepositoryImpl struct {
	store *Store
}

func NewApplicationRepository(store *Store) application.ApplicationRepository {
	return &applicationRepositoryImpl{store: store}
}

func (r *applicationRepositoryImpl) Create(ctx context.Context, app application.Application) (application.Application, error) {
	if _, ok := txFromContext(ctx); ok {
		if err := r.store.lockForTx(ctx, app.ID); err != nil {
			return application.Application{}, err
		}
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.ID]; exists {
		return application.Application{}, fmt.Errorf("application %s: %w", app.ID, application.ErrApplicationExists)
	}
	for _, existing := range s.applications {
		if existing.CandidateID == app.CandidateID && existing.VacancyPeriodID == app.VacancyPeriodID {
			return application.Application{}, application.ErrApplicationExists
		}
	}

	s.applications[app.ID] = app
	s.appOrder = append(s.appOrder, app.ID)

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.applications, app.ID)
		for i, id := range s.appOrder {
			if id == app.ID {
				s.appOrder = append(s.appOrder[:i], s.appOrder[i+1:]...)
				break
			}
		}
	})

	return app, nil
}

func (r *applicationRepositoryImpl) GetByID(ctx context.Context, id string) (application.Application, error) {
	var (
		app application.Application
		ok  bool
	)
	r.store.withAppLock(ctx, id, func() {
		app, ok = r.store.getApplication(id)
	})
	if !ok {
		return application.Application{}, application.ErrApplicationNotFound
	}
	return app, nil
}

func (r *applicationRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (application.Application, error) {
	if err := r.store.lockForTx(ctx, id); err != nil {
		return application.Application{}, err
	}
	app, ok := r.store.getApplication(id)
	if !ok {
		return application.Application{}, application.ErrApplicationNotFound
	}
	return app, nil
}

func (r *applicationRepositoryImpl) List(ctx context.Context, filter application.ApplicationFilter) ([]application.Application, int64, error) {
	s := r.store
	s.mu.RLock()
	ids := make([]string, len(s.appOrder))
	copy(ids, s.appOrder)
	s.mu.RUnlock()

	var matched []application.Application
	for _, id := range ids {
		var (
			app application.Application
			ok  bool
		)
		s.withAppLock(ctx, id, func() {
			app, ok = s.getApplication(id)
		})
		if !ok || !matches(app, filter) {
			continue
		}
		matched = append(matched, app)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	offset := filter.Offset()
	if offset < 0 || offset >= len(matched) {
		return []application.Application{}, total, nil
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *applicationRepositoryImpl) UpdateStage(ctx context.Context, id, fromStage, toStage string, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return application.ErrApplicationNotFound
	}
	if app.CurrentStage != fromStage {
		return fmt.Errorf("application %s is at %s, not %s: %w", id, app.CurrentStage, fromStage, application.ErrInvalidTransition)
	}

	prev := app
	app.CurrentStage = toStage
	app.UpdatedAt = at
	s.applications[id] = app

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.applications[id] = prev
	})
	return nil
}

func (s *Store) getApplication(id string) (application.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	return app, ok
}

func matches(app application.Application, f application.ApplicationFilter) bool {
	if f.VacancyPeriodID != nil && app.VacancyPeriodID != *f.VacancyPeriodID {
		return false
	}
	if f.CandidateID != nil && app.CandidateID != *f.CandidateID {
		return false
	}
	if f.Stage != nil && app.CurrentStage != *f.Stage {
		return false
	}
	return true
}
