package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cribware/stocktake/internal/count/entity"
	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/count/selection"
	"github.com/cribware/stocktake/internal/count/testutil"
	"github.com/cribware/stocktake/internal/inventory"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeSource is an in-memory inventory.Source. It honors the at-most-once
// write contract so tests can count actual mutations.
type fakeSource struct {
	mu         sync.Mutex
	items      []inventory.Item
	catalogErr error
	applyErr   error
	applied    map[string]inventory.AdjustmentWrite
}

func newFakeSource(items []inventory.Item) *fakeSource {
	return &fakeSource{
		items:   items,
		applied: map[string]inventory.AdjustmentWrite{},
	}
}

func (f *fakeSource) Catalog(ctx context.Context) ([]inventory.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	out := make([]inventory.Item, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeSource) Get(ctx context.Context, itemType inventory.ItemType, id string) (*inventory.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.Type == itemType && it.ID == id {
			item := it
			return &item, nil
		}
	}
	return nil, nil
}

func (f *fakeSource) ApplyAdjustment(ctx context.Context, w inventory.AdjustmentWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	if _, ok := f.applied[w.Key]; ok {
		return nil
	}
	f.applied[w.Key] = w
	return nil
}

func (f *fakeSource) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func fakeCatalog(n int) []inventory.Item {
	items := make([]inventory.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, inventory.Item{
			Type:            inventory.ItemTypeTool,
			ID:              fmt.Sprintf("tool-%03d", i),
			Name:            fmt.Sprintf("Tool %d", i),
			Category:        "hand",
			Location:        "A1",
			Quantity:        10,
			UnitCost:        5,
			QuantityTracked: true,
		})
	}
	return items
}

func newTestServices(t *testing.T, src inventory.Source) (*gorm.DB, *repository.Repositories, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svcs := NewServices(repos, src, nil, nil, AnalyticsOptions{}, zap.NewNop())
	return db, repos, svcs
}

// makeStartedBatch creates and starts a batch covering the whole fake
// catalog, returning it with items loaded.
func makeStartedBatch(t *testing.T, svcs *Services) *entity.Batch {
	t.Helper()
	ctx := context.Background()
	batch, err := svcs.Batch.Create(ctx, CreateBatchReq{
		Name:      "Test Batch",
		Selection: selection.Params{Method: entity.MethodAll},
	}, "user-1")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if _, err := svcs.Batch.Start(ctx, batch.ID); err != nil {
		t.Fatalf("start batch: %v", err)
	}
	loaded, err := svcs.Batch.Get(ctx, batch.ID, true)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	return loaded
}

// submitNominal counts one item exactly as expected.
func submitNominal(t *testing.T, svcs *Services, item entity.CountItem, user string) *SubmitCountResponse {
	t.Helper()
	qty := item.ExpectedQuantity
	resp, err := svcs.Item.SubmitCount(context.Background(), item.ID, SubmitCountReq{
		ActualQuantity: &qty,
		ActualLocation: item.ExpectedLocation,
		Condition:      entity.ConditionGood,
	}, user)
	if err != nil {
		t.Fatalf("submit count: %v", err)
	}
	return resp
}
