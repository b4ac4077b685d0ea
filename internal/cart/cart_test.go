package cart

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/storage"
)

func testService() *Service {
	return NewService(storage.NewMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func margherita(qty int) domain.CartItem {
	return domain.CartItem{ID: "pizza_margherita", Category: "pizze", Name: "Pizza Margherita",
		UnitPrice: d("8.50"), Quantity: qty}
}

func TestAddMergesSameLine(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)
	items, err := s.Add(ctx, domain.TakeawayContext, margherita(2))
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestAddDistinguishesByCategory(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)

	other := margherita(1)
	other.Category = "speciali"
	items, err := s.Add(ctx, domain.TakeawayContext, other)
	require.NoError(t, err)

	assert.Len(t, items, 2)
}

func TestAddDefaults(t *testing.T) {
	s := testService()
	items, err := s.Add(context.Background(), domain.TakeawayContext,
		domain.CartItem{ID: "cola", UnitPrice: d("3.00"), Quantity: 0})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, domain.DefaultCategory, items[0].Category)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(2))
	require.NoError(t, err)

	items, err := s.UpdateQuantity(ctx, domain.TakeawayContext, "pizza_margherita", "pizze", 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)
	items, err = s.UpdateQuantity(ctx, domain.TakeawayContext, "pizza_margherita", "pizze", -3)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateQuantitySets(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)
	items, err := s.UpdateQuantity(ctx, domain.TakeawayContext, "pizza_margherita", "pizze", 5)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartsAreIsolatedPerContext(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)
	_, err = s.Add(ctx, domain.TableContext(3), margherita(2))
	require.NoError(t, err)

	assert.Equal(t, 1, ItemCount(s.Load(ctx, domain.TakeawayContext)))
	assert.Equal(t, 2, ItemCount(s.Load(ctx, domain.TableContext(3))))
}

func TestClear(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, domain.TakeawayContext))

	assert.Empty(t, s.Load(ctx, domain.TakeawayContext))
}

func TestLoadSurvivesMissingDocument(t *testing.T) {
	s := testService()
	assert.Empty(t, s.Load(context.Background(), domain.TableContext(9)))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := testService()
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TakeawayContext, margherita(1))
	require.NoError(t, err)

	snap := s.Snapshot(ctx, domain.TakeawayContext)
	snap[0].Quantity = 99

	assert.Equal(t, 1, s.Load(ctx, domain.TakeawayContext)[0].Quantity)
}

func TestPersistenceAcrossServiceInstances(t *testing.T) {
	store := storage.NewMemory()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	first := NewService(store, lg)
	_, err := first.Add(ctx, domain.TakeawayContext, margherita(2))
	require.NoError(t, err)

	second := NewService(store, lg)
	items := second.Load(ctx, domain.TakeawayContext)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, Subtotal(items).Equal(d("17.00")))
}
