// Package services holds the ledger that sits behind the HTTP front end.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

// LedgerService validates expenses, persists them through a Store,
// announces them on a Publisher and caches per-date listings.
type LedgerService struct {
	store     ledger.Store
	publisher events.Publisher
	cache     cache.Cache[[]core.Expense]
	rules     *validator.Validate
	logger    *log.Logger
	now       func() time.Time

	// cacheMu orders cache fills against invalidations. generation moves
	// on every successful Record; a listing read under an older
	// generation is returned but not cached.
	cacheMu    sync.Mutex
	generation uint64
}

// Option customises a LedgerService.
type Option func(*LedgerService)

// WithPublisher sets where expense.recorded events go. Without it events
// are dropped.
func WithPublisher(p events.Publisher) Option {
	return func(s *LedgerService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithCache enables caching of ExpensesOn results.
func WithCache(c cache.Cache[[]core.Expense]) Option {
	return func(s *LedgerService) { s.cache = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: events.Nop{},
		rules:     newValidator(),
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates and stores e. Validation problems and store-side
// rejections come back as an unsuccessful RecordResult; anything else is
// an error.
func (s *LedgerService) Record(ctx context.Context, e core.Expense) (core.RecordResult, error) {
	if msg := s.validate(e); msg != "" {
		s.logger.InfoContext(ctx, "Expense rejected",
			log.NewFields().WithOperation(log.OpRecord).Args()...,
		)
		return core.Rejected(msg), nil
	}

	date := inputFrom(e).Date
	id, err := s.store.Save(ctx, date, e)
	if err != nil {
		if errors.Is(err, ledger.ErrRejected) {
			return core.Rejected(err.Error()), nil
		}
		return core.RecordResult{}, fmt.Errorf("save expense: %w", err)
	}

	s.invalidate(date)

	fields := log.NewFields().
		WithOperation(log.OpRecord).
		WithExpense(id, date, e.StringField(core.FieldPayee), s.cents(e))
	s.logger.InfoContext(ctx, "Expense recorded", fields.Args()...)

	ev := events.NewExpenseRecorded(id, date, e, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			fields.WithOperation(log.OpPublish).WithError(err).Args()...,
		)
	}

	return core.Recorded(id), nil
}

// ExpensesOn lists the expenses recorded for date. The returned slice is
// never nil and never shares memory with the cache.
func (s *LedgerService) ExpensesOn(ctx context.Context, date string) ([]core.Expense, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(date); ok {
			return core.CloneAll(cached), nil
		}
	}

	gen := s.currentGeneration()
	list, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list expenses on %s: %w", date, err)
	}
	list = core.CloneAll(list)

	s.fill(date, gen, list)
	s.logger.DebugContext(ctx, "Listed expenses",
		log.FieldOperation, log.OpList,
		log.FieldExpenseDate, date,
		log.FieldCount, len(list))
	return list, nil
}

func (s *LedgerService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

func (s *LedgerService) invalidate(date string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if s.cache != nil {
		s.cache.Delete(date)
	}
}

// fill caches list unless a Record landed after it was read.
func (s *LedgerService) fill(date string, gen uint64, list []core.Expense) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		return
	}
	s.cache.Set(date, core.CloneAll(list))
}

// Ping reports whether the underlying store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(ledger.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	return errors.Join(errs...)
}

func (s *LedgerService) cents(e core.Expense) int64 {
	d, err := core.ParseAmount(e[core.FieldAmount])
	if err != nil {
		return 0
	}
	return core.Cents(d)
}

var (
	_ ledger.Ledger = (*LedgerService)(nil)
	_ ledger.Pinger = (*LedgerService)(nil)
)
