package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

var errStorage = errors.New("storage unavailable")

type memState struct {
	products map[string]domain.Product
	batches  map[string]domain.Batch
}

func (s memState) clone() memState {
	out := memState{
		products: make(map[string]domain.Product, len(s.products)),
		batches:  make(map[string]domain.Batch, len(s.batches)),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.batches {
		out.batches[k] = v
	}
	return out
}

func (s memState) batchesOf(productID string) []domain.Batch {
	var out []domain.Batch
	for _, b := range s.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	return domain.ByExpiryAscending.Sorted(out)
}

// Mock Store: one mutex stands in for row locks, so transactions are
// serialised. A transaction works on a copy that is swapped in on commit.
type fakeStore struct {
	mu              sync.Mutex
	state           memState
	failOn          string
	aggregateWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: memState{
		products: make(map[string]domain.Product),
		batches:  make(map[string]domain.Batch),
	}}
}

func (f *fakeStore) seed(p domain.Product, batches ...domain.Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range batches {
		b.ProductID = p.ID
		f.state.batches[b.ID] = b
	}
	agg := domain.ComputeAggregate(f.state.batchesOf(p.ID))
	p.Quantity, p.ExpiryDate = agg.Quantity, agg.ExpiryDate
	f.state.products[p.ID] = p
}

func (f *fakeStore) product(id string) (domain.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.state.products[id]
	return p, ok
}

func (f *fakeStore) batches(productID string) []domain.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.batchesOf(productID)
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx port.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{store: f, state: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	f.state = tx.state
	f.aggregateWrites += tx.aggregateWrites
	return nil
}

func (f *fakeStore) GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.state.products[productID]
	if !ok || p.UserID != userID {
		return nil, domain.NewNotFoundError("product", productID)
	}
	return &p, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.owned(userID)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ExpiryDate, out[j].ExpiryDate
		switch {
		case a == nil && b == nil:
			return out[i].Name < out[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeStore) ListProductBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.state.products[productID]
	if !ok || p.UserID != userID {
		return nil, domain.NewNotFoundError("product", productID)
	}
	return f.state.batchesOf(productID), nil
}

func (f *fakeStore) ListRestockCandidates(ctx context.Context, userID string, now time.Time) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Product
	for _, p := range f.owned(userID) {
		if p.NeedsRestock(now) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) UpdateProductDetails(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.state.products[productID]
	if !ok || p.UserID != userID {
		return nil, domain.NewNotFoundError("product", productID)
	}
	p.Name = details.Name
	p.Obs = details.Obs
	p.MinQuantity = details.MinQuantity
	p.CategoryID = details.CategoryID
	p.StorageLocationID = details.StorageLocationID
	f.state.products[productID] = p
	return &p, nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.state.products[productID]
	if !ok || p.UserID != userID {
		return domain.NewNotFoundError("product", productID)
	}
	delete(f.state.products, productID)
	for id, b := range f.state.batches {
		if b.ProductID == productID {
			delete(f.state.batches, id)
		}
	}
	return nil
}

func (f *fakeStore) owned(userID string) []domain.Product {
	var out []domain.Product
	for _, p := range f.state.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

type fakeTx struct {
	store           *fakeStore
	state           memState
	aggregateWrites int
}

func (t *fakeTx) fail(op string) error {
	if t.store.failOn == op {
		return errStorage
	}
	return nil
}

func (t *fakeTx) InsertProduct(ctx context.Context, product domain.Product) error {
	if err := t.fail("InsertProduct"); err != nil {
		return err
	}
	product.Quantity, product.ExpiryDate = 0, nil
	t.state.products[product.ID] = product
	return nil
}

func (t *fakeTx) LockProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	p, ok := t.state.products[productID]
	if !ok || p.UserID != userID {
		return nil, domain.NewNotFoundError("product", productID)
	}
	return &p, nil
}

func (t *fakeTx) LockBatchProduct(ctx context.Context, userID, batchID string) (*domain.Product, *domain.Batch, error) {
	b, ok := t.state.batches[batchID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("batch", batchID)
	}
	p, ok := t.state.products[b.ProductID]
	if !ok || p.UserID != userID {
		return nil, nil, domain.NewNotFoundError("batch", batchID)
	}
	return &p, &b, nil
}

func (t *fakeTx) ListBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	return t.state.batchesOf(productID), nil
}

func (t *fakeTx) LockBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	if err := t.fail("LockBatches"); err != nil {
		return nil, err
	}
	return t.state.batchesOf(productID), nil
}

func (t *fakeTx) InsertBatch(ctx context.Context, batch domain.Batch) error {
	if err := t.fail("InsertBatch"); err != nil {
		return err
	}
	for _, b := range t.state.batches {
		if b.ProductID == batch.ProductID && b.ExpiryDate.Equal(batch.ExpiryDate) {
			return errors.New("duplicate expiry date")
		}
	}
	t.state.batches[batch.ID] = batch
	return nil
}

func (t *fakeTx) SetBatchQuantity(ctx context.Context, batchID string, quantity int) error {
	if err := t.fail("SetBatchQuantity"); err != nil {
		return err
	}
	b := t.state.batches[batchID]
	b.Quantity = quantity
	t.state.batches[batchID] = b
	return nil
}

func (t *fakeTx) DeleteBatch(ctx context.Context, batchID string) error {
	if err := t.fail("DeleteBatch"); err != nil {
		return err
	}
	delete(t.state.batches, batchID)
	return nil
}

func (t *fakeTx) PurgeEmptyBatches(ctx context.Context, productID string) error {
	for id, b := range t.state.batches {
		if b.ProductID == productID && b.Quantity <= 0 {
			delete(t.state.batches, id)
		}
	}
	return nil
}

func (t *fakeTx) WriteAggregate(ctx context.Context, productID string, aggregate domain.Aggregate) (*domain.Product, error) {
	if err := t.fail("WriteAggregate"); err != nil {
		return nil, err
	}
	p := t.state.products[productID]
	p.Quantity, p.ExpiryDate = aggregate.Quantity, aggregate.ExpiryDate
	t.state.products[productID] = p
	t.aggregateWrites++
	return &p, nil
}

// Mock IdempotencyRepository
type mockIdempotency struct {
	mu      sync.Mutex
	claimed map[string]string
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{claimed: make(map[string]string)}
}

func (m *mockIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.claimed[key]; ok {
		return false, nil
	}
	m.claimed[key] = "pending"
	return true, nil
}

func (m *mockIdempotency) Complete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claimed[key]; ok {
		m.claimed[key] = "done"
	}
	return nil
}

func (m *mockIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] == "pending" {
		delete(m.claimed, key)
	}
	return nil
}
