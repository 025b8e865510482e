package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/fulfillment/flog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bookstore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBookCRUD(t *testing.T) {
	repo := openTestStore(t).Books()
	ctx := context.Background()

	book := &entity.Book{
		ID:        "b1",
		Title:     "Echoes",
		Author:    "M. Rivers",
		Price:     12.50,
		CoverURL:  "https://cdn/cover.png",
		PDFURL:    "https://cdn/echoes.pdf",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, book))

	got, err := repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Echoes", got.Title)
	assert.Equal(t, 12.50, got.Price)

	// Merge update: only the patched fields change.
	newPrice := 9.99
	require.NoError(t, repo.Update(ctx, "b1", entity.BookPatch{Price: &newPrice}))
	got, err = repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 9.99, got.Price)
	assert.Equal(t, "Echoes", got.Title)
	assert.Equal(t, "https://cdn/cover.png", got.CoverURL)

	require.NoError(t, repo.Delete(ctx, "b1"))
	_, err = repo.GetByID(ctx, "b1")
	assert.ErrorIs(t, err, ports.ErrBookNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "b1"), ports.ErrBookNotFound)
	assert.ErrorIs(t, repo.Update(ctx, "b1", entity.BookPatch{}), ports.ErrBookNotFound)
}

func TestOrderRoundTripPreservesLooseItems(t *testing.T) {
	repo := openTestStore(t).Orders()
	ctx := context.Background()

	total := 20.0
	order := &entity.Order{
		ID:     "cs_1",
		Email:  "reader@example.com",
		Status: entity.StatusPending,
		Items: []entity.OrderItem{
			{BookID: "b1", Title: "Echoes", Price: 10.0, Quantity: 2.0},
			{BookID: "b2", Title: "Tides", Price: "oops", Quantity: "many"},
		},
		TotalPrice: &total,
	}
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, "cs_1")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 10.0, got.Items[0].Price)
	assert.Equal(t, "oops", got.Items[1].Price)
	assert.Equal(t, "many", got.Items[1].Quantity)
	require.NotNil(t, got.TotalPrice)
	assert.Equal(t, 20.0, *got.TotalPrice)
}

func TestOrderStatusRevisionCheck(t *testing.T) {
	repo := openTestStore(t).Orders()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Order{ID: "cs_1", Status: entity.StatusPending}))

	require.NoError(t, repo.UpdateStatus(ctx, "cs_1", entity.StatusCompleted, 0))

	// The first update bumped the revision, so the stale expectation fails.
	err := repo.UpdateStatus(ctx, "cs_1", entity.StatusArchived, 0)
	assert.ErrorIs(t, err, ports.ErrRevisionConflict)

	got, err := repo.GetByID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, got.Status)
	assert.Equal(t, int64(1), got.Revision)

	require.NoError(t, repo.UpdateStatus(ctx, "cs_1", entity.StatusArchived, 1))

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", entity.StatusArchived, 0), ports.ErrOrderNotFound)
}

func TestMarkPaidIsUnconditional(t *testing.T) {
	repo := openTestStore(t).Orders()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Order{ID: "cs_1", Status: entity.StatusPending}))

	// Provider retries deliver the same confirmation twice; both land.
	require.NoError(t, repo.MarkPaid(ctx, "cs_1", "pi_123"))
	require.NoError(t, repo.MarkPaid(ctx, "cs_1", "pi_123"))

	got, err := repo.GetByID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSuccess, got.Status)
	assert.Equal(t, "pi_123", got.PaymentRef)
	assert.Equal(t, int64(2), got.Revision)

	assert.ErrorIs(t, repo.MarkPaid(ctx, "missing", "pi_1"), ports.ErrOrderNotFound)
}

func TestListByStatus(t *testing.T) {
	repo := openTestStore(t).Orders()
	ctx := context.Background()

	for _, o := range []entity.Order{
		{ID: "o1", Status: entity.StatusPending},
		{ID: "o2", Status: entity.StatusSuccess},
		{ID: "o3", Status: entity.StatusArchived},
		{ID: "o4", Status: entity.StatusCompleted},
	} {
		order := o
		require.NoError(t, repo.Create(ctx, &order))
	}

	active, err := repo.ListByStatus(ctx, entity.ActiveStatuses...)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	archived, err := repo.ListByStatus(ctx, entity.StatusArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "o3", archived[0].ID)

	none, err := repo.ListByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMissingTotalIsDerivedOnRead(t *testing.T) {
	repo := openTestStore(t).Orders()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Order{
		ID:     "cs_1",
		Status: entity.StatusSuccess,
		Items:  []entity.OrderItem{{BookID: "b1", Price: 7.5, Quantity: 2.0}},
	}))

	got, err := repo.GetByID(ctx, "cs_1")
	require.NoError(t, err)
	require.NotNil(t, got.TotalPrice)
	assert.Equal(t, 15.0, *got.TotalPrice)
}

func TestFulfillmentLogAppendAndLatest(t *testing.T) {
	repo := openTestStore(t).FulfillmentLogs()
	ctx := context.Background()

	first := flog.NewEntry(ctx, "cs_1", flog.StatusStarted, "", nil)
	require.NoError(t, repo.Save(ctx, first))

	second := flog.NewEntry(ctx, "cs_1", flog.StatusFailed, "print_submission", []string{"print service unavailable"})
	second.UpdatedAt = first.UpdatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second))

	latest, err := repo.GetLatest(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, flog.StatusFailed, latest.Status)
	assert.Equal(t, "print_submission", latest.CurrentStep)
	assert.Contains(t, latest.ErrorMessages, "print service unavailable")

	_, err = repo.GetLatest(ctx, "unknown")
	assert.Error(t, err)
}
