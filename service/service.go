// Package service implements product CRUD on top of a store.Store.
//
// Every call loads the whole collection, works on it in memory and, for
// mutations, saves the whole collection back. Nothing is cached between
// calls. Mutations inside one process are serialized so concurrent requests
// cannot lose each other's writes, and reads wait for any save in progress.
// Separate processes sharing the same storage still race and the last save
// wins.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stevemurr/comparison-api/product"
	"github.com/stevemurr/comparison-api/store"
)

// MetricsRecorder observes the outcome of each operation.
type MetricsRecorder interface {
	ObserveOperation(op string, d time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, time.Duration, error) {}

// Operation names reported to the MetricsRecorder.
const (
	OpList    = "list"
	OpGet     = "get"
	OpCreate  = "create"
	OpReplace = "replace"
	OpPatch   = "patch"
	OpDelete  = "delete"
)

// Service exposes the product operations.
type Service struct {
	store   store.Store
	log     *slog.Logger
	metrics MetricsRecorder

	// mu serializes load-modify-save for mutations; reads hold it shared so
	// they never see a half-written file.
	mu sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, log: slog.Default(), metrics: noopRecorder{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns all products in stored order.
func (s *Service) List(ctx context.Context) (records []product.Record, err error) {
	defer s.observe(OpList, time.Now(), &err)
	s.log.InfoContext(ctx, "Fetching all products")

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx)
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id int) (_ product.Record, err error) {
	defer s.observe(OpGet, time.Now(), &err)
	s.log.InfoContext(ctx, "Fetching product", "id", id)

	s.mu.RLock()
	defer s.mu.RUnlock()
	records, err := s.load(ctx)
	if err != nil {
		return product.Record{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return product.Record{}, s.notFound(ctx, "Product not found", id)
	}
	return records[i], nil
}

// Create assigns the next id (highest existing id plus one) to a new
// product, appends it and saves the collection.
func (s *Service) Create(ctx context.Context, in product.CreateInput) (_ product.Record, err error) {
	defer s.observe(OpCreate, time.Now(), &err)
	s.log.InfoContext(ctx, "Creating product", "name", in.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return product.Record{}, err
	}
	created := in.Record(nextID(records))
	records = append(records, created)
	if err := s.save(ctx, records); err != nil {
		return product.Record{}, err
	}
	s.log.DebugContext(ctx, "Product created", "id", created.ID)
	return created, nil
}

// Replace swaps every domain field of the product for those in in. Fields
// of the old record are not carried over; only the id and position stay.
func (s *Service) Replace(ctx context.Context, id int, in product.FullUpdateInput) (_ product.Record, err error) {
	defer s.observe(OpReplace, time.Now(), &err)
	return s.update(ctx, id, func(product.Record) product.Record {
		return in.Record(id)
	}, []string{"name", "description", "image_url", "price", "rating", "specs"})
}

// Patch overlays the fields set in in onto the existing product.
func (s *Service) Patch(ctx context.Context, id int, in product.PartialUpdateInput) (_ product.Record, err error) {
	defer s.observe(OpPatch, time.Now(), &err)
	return s.update(ctx, id, in.Apply, in.Fields())
}

func (s *Service) update(ctx context.Context, id int, build func(product.Record) product.Record, fields []string) (product.Record, error) {
	s.log.InfoContext(ctx, "Updating product", "id", id)

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return product.Record{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return product.Record{}, s.notFound(ctx, "Attempted to update non-existing product", id)
	}
	updated := build(records[i])
	records[i] = updated
	if err := s.save(ctx, records); err != nil {
		return product.Record{}, err
	}
	s.log.InfoContext(ctx, "Product updated", "id", id, "fields", fields)
	return updated, nil
}

// Delete removes the product with the given id.
func (s *Service) Delete(ctx context.Context, id int) (err error) {
	defer s.observe(OpDelete, time.Now(), &err)
	s.log.InfoContext(ctx, "Deleting product", "id", id)

	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return s.notFound(ctx, "Attempted to delete non-existing product", id)
	}
	records = append(records[:i], records[i+1:]...)
	if err := s.save(ctx, records); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Product deleted", "id", id)
	return nil
}

func (s *Service) load(ctx context.Context) ([]product.Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load data", "error", product.Cause(err))
		return nil, err
	}
	s.log.DebugContext(ctx, "Loaded products", "count", len(records))
	return records, nil
}

func (s *Service) save(ctx context.Context, records []product.Record) error {
	if err := s.store.Save(ctx, records); err != nil {
		s.log.ErrorContext(ctx, "Failed to save data", "error", product.Cause(err))
		return err
	}
	s.log.InfoContext(ctx, "Saved products", "count", len(records))
	return nil
}

func (s *Service) notFound(ctx context.Context, msg string, id int) error {
	s.log.WarnContext(ctx, msg, "id", id)
	return &product.NotFoundError{ID: id}
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, time.Since(start), *err)
}

func indexOf(records []product.Record, id int) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func nextID(records []product.Record) int {
	maxID := 0
	for _, r := range records {
		maxID = max(maxID, r.ID)
	}
	return maxID + 1
}
