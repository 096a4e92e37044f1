package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/comparison-api/product"
	"github.com/stevemurr/comparison-api/service"
	"github.com/stevemurr/comparison-api/store"
)

func ptr(f float64) *float64 { return &f }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func example() product.CreateInput {
	return product.CreateInput{
		Name:        "Test product",
		Description: "Product for test",
		ImageURL:    "https://example.com/",
		Price:       4599.0,
		Rating:      ptr(3),
		Specs:       map[string]string{"screen": ""},
	}
}

func fileService(t *testing.T) (*service.Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	st, err := store.NewJSONFileStore(path)
	require.NoError(t, err)
	return service.New(st, service.WithLogger(quiet)), path
}

// faultyStore wraps a store and fails Load or Save on demand.
type faultyStore struct {
	store.Store
	loadErr error
	saveErr error
	saves   int
}

func (f *faultyStore) Load(ctx context.Context) ([]product.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Store.Load(ctx)
}

func (f *faultyStore) Save(ctx context.Context, records []product.Record) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, records)
}

type recorded struct {
	op  string
	err error
}

type fakeMetrics struct {
	mu  sync.Mutex
	ops []recorded
}

func (m *fakeMetrics) ObserveOperation(op string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, recorded{op, err})
}

func TestSequentialIDs(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		r, err := svc.Create(ctx, example())
		require.NoError(t, err)
		assert.Equal(t, want, r.ID)
	}
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestNextIDFollowsMaximum(t *testing.T) {
	st := store.NewMemoryStore(
		product.Record{ID: 10, Name: "ten"},
		product.Record{ID: 3, Name: "three"},
	)
	svc := service.New(st, service.WithLogger(quiet))

	r, err := svc.Create(context.Background(), example())
	require.NoError(t, err)
	assert.Equal(t, 11, r.ID)
}

func TestCreateThenGet(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, example())
	require.NoError(t, err)
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := fileService(t)
	r, err := svc.Create(context.Background(), product.CreateInput{
		Name:     "A",
		ImageURL: "https://a.example/",
		Price:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, product.Record{
		ID:       1,
		Name:     "A",
		ImageURL: "https://a.example/",
		Price:    10,
		Specs:    map[string]string{},
	}, r)
}

func TestReplace(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, example())
	require.NoError(t, err)
	_, err = svc.Create(ctx, product.CreateInput{Name: "other", Price: 1})
	require.NoError(t, err)

	in := product.FullUpdateInput{
		Name:        "Replaced",
		Description: "new",
		ImageURL:    "https://example.com/new.png",
		Price:       25.99,
	}
	updated, err := svc.Replace(ctx, created.ID, in)
	require.NoError(t, err)

	want := product.Record{
		ID:          created.ID,
		Name:        "Replaced",
		Description: "new",
		ImageURL:    "https://example.com/new.png",
		Price:       25.99,
		Specs:       map[string]string{},
	}
	assert.Equal(t, want, updated)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Nil(t, got.Rating, "rating must not be inherited from the old record")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, created.ID, all[0].ID, "position is preserved")
}

func TestPatch(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, example())
	require.NoError(t, err)

	updated, err := svc.Patch(ctx, created.ID, product.PartialUpdateInput{
		Description: product.Some("Updated description"),
	})
	require.NoError(t, err)

	want := created.Clone()
	want.Description = "Updated description"
	assert.Equal(t, want, updated)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPatchClearsRating(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, example())
	require.NoError(t, err)

	got, err := svc.Patch(ctx, created.ID, product.PartialUpdateInput{Rating: product.Some[*float64](nil)})
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
	assert.Equal(t, created.Name, got.Name)
}

func TestPatchEmptyKeepsRecord(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, example())
	require.NoError(t, err)

	got, err := svc.Patch(ctx, created.ID, product.PartialUpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestDelete(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, example())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestMissingID(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, example())
	require.NoError(t, err)

	_, err = svc.Get(ctx, 0)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.EqualError(t, err, "product with id=0 not found")

	_, err = svc.Replace(ctx, 0, product.FullUpdateInput{Name: "x"})
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.Patch(ctx, 0, product.PartialUpdateInput{})
	assert.ErrorIs(t, err, product.ErrNotFound)

	err = svc.Delete(ctx, 0)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestMissingStorageFile(t *testing.T) {
	svc, path := fileService(t)
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestCorruptStorageFailsEveryOperation(t *testing.T) {
	svc, path := fileService(t)
	const corrupt = "{ invalid json }"
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.ErrorIs(t, err, product.ErrDataFormat)
	_, err = svc.Get(ctx, 0)
	assert.ErrorIs(t, err, product.ErrDataFormat)
	_, err = svc.Create(ctx, example())
	assert.ErrorIs(t, err, product.ErrDataFormat)
	_, err = svc.Replace(ctx, 0, product.FullUpdateInput{})
	assert.ErrorIs(t, err, product.ErrDataFormat)
	_, err = svc.Patch(ctx, 0, product.PartialUpdateInput{})
	assert.ErrorIs(t, err, product.ErrDataFormat)
	err = svc.Delete(ctx, 0)
	assert.ErrorIs(t, err, product.ErrDataFormat)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(raw), "nothing may be written after a failed load")
}

func TestLoadFailureSkipsSave(t *testing.T) {
	fs := &faultyStore{Store: store.NewMemoryStore(), loadErr: product.DataFormatError(errors.New("boom"))}
	svc := service.New(fs, service.WithLogger(quiet))
	ctx := context.Background()

	_, _ = svc.Create(ctx, example())
	_, _ = svc.Replace(ctx, 1, product.FullUpdateInput{})
	_, _ = svc.Patch(ctx, 1, product.PartialUpdateInput{})
	_ = svc.Delete(ctx, 1)
	assert.Zero(t, fs.saves)
}

func TestSaveFailure(t *testing.T) {
	mem := store.NewMemoryStore(product.Record{ID: 1, Name: "kept", Specs: map[string]string{}})
	fs := &faultyStore{Store: mem, saveErr: product.PersistenceError(errors.New("read-only file system"))}
	svc := service.New(fs, service.WithLogger(quiet))
	ctx := context.Background()

	_, err := svc.Create(ctx, example())
	assert.ErrorIs(t, err, product.ErrPersistence)
	assert.EqualError(t, err, "unable to save data")

	_, err = svc.Replace(ctx, 1, product.FullUpdateInput{Name: "x"})
	assert.ErrorIs(t, err, product.ErrPersistence)

	_, err = svc.Patch(ctx, 1, product.PartialUpdateInput{Name: product.Some("x")})
	assert.ErrorIs(t, err, product.ErrPersistence)

	err = svc.Delete(ctx, 1)
	assert.ErrorIs(t, err, product.ErrPersistence)

	// Not-found wins over save failures.
	err = svc.Delete(ctx, 2)
	assert.ErrorIs(t, err, product.ErrNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []product.Record{{ID: 1, Name: "kept", Specs: map[string]string{}}}, all)
}

func TestScenario(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, product.CreateInput{Name: "A", Price: 10})
	require.NoError(t, err)
	assert.Equal(t, product.Record{ID: 1, Name: "A", Price: 10, Specs: map[string]string{}}, a)

	b, err := svc.Create(ctx, product.CreateInput{Name: "B", Price: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, b.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []product.Record{a, b}, all)

	require.NoError(t, svc.Delete(ctx, 1))
	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []product.Record{b}, all)
}

func TestConcurrentCreates(t *testing.T) {
	svc, _ := fileService(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, example())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)
	ids := make([]int, 0, n)
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}
}

func TestReadsDuringWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	st, err := store.NewJSONFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	// A large file keeps each rewrite slow enough to overlap the reads.
	seed := make([]product.Record, 300)
	for i := range seed {
		seed[i] = example().Record(i + 1)
		seed[i].Description = strings.Repeat("x", 3000)
	}
	require.NoError(t, st.Save(ctx, seed))
	svc := service.New(st, service.WithLogger(quiet))

	var wg sync.WaitGroup
	errs := make(chan error, 1000)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 100 {
			desc := product.Some(fmt.Sprintf("rev %d", i))
			if _, err := svc.Patch(ctx, 1, product.PartialUpdateInput{Description: desc}); err != nil {
				errs <- err
			}
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := svc.List(ctx); err != nil {
					errs <- err
				}
				if _, err := svc.Get(ctx, 300); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NotErrorIs(t, err, product.ErrDataFormat)
		assert.NoError(t, err)
	}

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "rev 99", got.Description)
}

func TestMetricsObserved(t *testing.T) {
	m := &fakeMetrics{}
	svc := service.New(store.NewMemoryStore(), service.WithLogger(quiet), service.WithMetrics(m))
	ctx := context.Background()

	_, _ = svc.Create(ctx, example())
	_, _ = svc.Get(ctx, 42)

	require.Len(t, m.ops, 2)
	assert.Equal(t, service.OpCreate, m.ops[0].op)
	assert.NoError(t, m.ops[0].err)
	assert.Equal(t, service.OpGet, m.ops[1].op)
	assert.ErrorIs(t, m.ops[1].err, product.ErrNotFound)
}
