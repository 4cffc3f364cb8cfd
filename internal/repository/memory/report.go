package memory

import (
	"context"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
)

type reportRepositoryImpl struct {
	store *Store
}

func NewReportRepository(store *Store) report.ReportRepository {
	return &reportRepositoryImpl{store: store}
}

func (r *reportRepositoryImpl) Create(ctx context.Context, rep report.Report) (report.Report, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[rep.ApplicationID]; exists {
		return report.Report{}, report.ErrDuplicateReport
	}
	s.reports[rep.ApplicationID] = cloneReport(rep)

	onRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.reports, rep.ApplicationID)
	})
	return cloneReport(rep), nil
}

func (r *reportRepositoryImpl) GetByApplicationID(ctx context.Context, applicationID string) (report.Report, error) {
	var (
		rep report.Report
		ok  bool
	)
	r.store.withAppLock(ctx, applicationID, func() {
		r.store.mu.RLock()
		defer r.store.mu.RUnlock()
		rep, ok = r.store.reports[applicationID]
		if ok {
			rep = cloneReport(rep)
		}
	})
	if !ok {
		return report.Report{}, report.ErrReportNotFound
	}
	return rep, nil
}

func (r *reportRepositoryImpl) ExistsForApplication(ctx context.Context, applicationID string) (bool, error) {
	_, err := r.GetByApplicationID(ctx, applicationID)
	if err == report.ErrReportNotFound {
		return false, nil
	}
	return err == nil, err
}
