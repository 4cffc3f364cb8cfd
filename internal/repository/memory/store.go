// Package memory keeps pipeline records in process memory. It backs the
// "memory" store mode and the service tests, and mirrors the PostgreSQL
// repositories' locking and constraint behaviour.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
)

type Store struct {
	mu           sync.RWMutex
	applications map[string]application.Application
	appOrder     []string
	history      map[string][]application.HistoryEntry // by application id
	entryOwner   map[string]string                     // entry id -> application id
	reports      map[string]report.Report              // by application id

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // per application
}

func NewStore() *Store {
	return &Store{
		applications: make(map[string]application.Application),
		history:      make(map[string][]application.HistoryEntry),
		entryOwner:   make(map[string]string),
		reports:      make(map[string]report.Report),
		locks:        make(map[string]*sync.Mutex),
	}
}

type txKey struct{}

type txState struct {
	undo []func()
	held map[string]*sync.Mutex
}

func txFromContext(ctx context.Context) (*txState, bool) {
	tx, ok := ctx.Value(txKey{}).(*txState)
	return tx, ok
}

// onRollback registers fn to run if the surrounding transaction fails.
// Outside a transaction writes are final and nothing is recorded.
func onRollback(ctx context.Context, fn func()) {
	if tx, ok := txFromContext(ctx); ok {
		tx.undo = append(tx.undo, fn)
	}
}

func (s *Store) appLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// lockForTx takes the application lock for the rest of the transaction.
func (s *Store) lockForTx(ctx context.Context, id string) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return application.ErrTransactionMissing
	}
	if _, held := tx.held[id]; held {
		return nil
	}
	m := s.appLock(id)
	m.Lock()
	tx.held[id] = m
	return nil
}

// withAppLock runs fn while holding the application lock, unless the current
// transaction already owns it. Reads go through here so a half-applied
// transaction is never visible.
func (s *Store) withAppLock(ctx context.Context, id string, fn func()) {
	if tx, ok := txFromContext(ctx); ok {
		if _, held := tx.held[id]; held {
			fn()
			return
		}
	}
	m := s.appLock(id)
	m.Lock()
	defer m.Unlock()
	fn()
}

// Transactor implements application.Transactor for the memory store.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx := &txState{held: make(map[string]*sync.Mutex)}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			tx.release()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		tx.rollback()
		tx.release()
		return err
	}
	tx.release()
	return nil
}

func (tx *txState) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *txState) release() {
	for id, m := range tx.held {
		m.Unlock()
		delete(tx.held, id)
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneEntry(e application.HistoryEntry) application.HistoryEntry {
	out := e
	out.ScheduledAt = cloneTime(e.ScheduledAt)
	out.CompletedAt = cloneTime(e.CompletedAt)
	out.Score = cloneFloat(e.Score)
	out.ReviewedBy = cloneString(e.ReviewedBy)
	out.ReviewedAt = cloneTime(e.ReviewedAt)
	out.DeactivatedBy = cloneString(e.DeactivatedBy)
	out.DeactivatedAt = cloneTime(e.DeactivatedAt)
	if e.Decision != nil {
		d := *e.Decision
		out.Decision = &d
	}
	return out
}

func cloneReport(r report.Report) report.Report {
	out := r
	out.OverallScore = cloneFloat(r.OverallScore)
	if r.StageScores != nil {
		out.StageScores = make(report.StageScores, len(r.StageScores))
		for i, s := range r.StageScores {
			out.StageScores[i] = report.StageScore{Stage: s.Stage, Name: s.Name, Score: cloneFloat(s.Score)}
		}
	}
	return out
}
