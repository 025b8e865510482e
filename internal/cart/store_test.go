package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
)

type mockBookRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*entity.Book, error)
}

func (m *mockBookRepo) Create(ctx context.Context, book *entity.Book) error { return nil }
func (m *mockBookRepo) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	return m.getByIDFunc(ctx, id)
}
func (m *mockBookRepo) Update(ctx context.Context, id string, patch entity.BookPatch) error {
	return nil
}
func (m *mockBookRepo) Delete(ctx context.Context, id string) error    { return nil }
func (m *mockBookRepo) List(ctx context.Context) ([]entity.Book, error) { return nil, nil }

type memCache struct {
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		c.entries[key] = string(v)
	case string:
		c.entries[key] = v
	}
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	return c.entries[key], nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) GenerateKey(operation, key string) string {
	return operation + ":" + key
}

func catalogOf(books ...entity.Book) *mockBookRepo {
	byID := map[string]entity.Book{}
	for _, b := range books {
		byID[b.ID] = b
	}
	return &mockBookRepo{
		getByIDFunc: func(_ context.Context, id string) (*entity.Book, error) {
			b, ok := byID[id]
			if !ok {
				return nil, ports.ErrBookNotFound
			}
			return &b, nil
		},
	}
}

func TestAddBookMergesQuantities(t *testing.T) {
	repo := catalogOf(entity.Book{ID: "b1", Title: "Echoes", Price: 10})
	svc := NewService(newMemCache(), repo)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "client-1", "b1", 1)
	require.NoError(t, err)
	c, err := svc.AddBook(ctx, "client-1", "b1", 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 30.0, c.Total())
}

func TestAddBookSnapshotsCatalogFields(t *testing.T) {
	repo := catalogOf(entity.Book{
		ID: "b1", Title: "Echoes", Author: "M. Rivers",
		Price: 12.50, CoverURL: "https://cdn/cover.png", IsFree: false,
	})
	svc := NewService(newMemCache(), repo)

	c, err := svc.AddBook(context.Background(), "client-1", "b1", 1)
	require.NoError(t, err)

	item := c.Items[0]
	assert.Equal(t, "Echoes", item.Title)
	assert.Equal(t, "M. Rivers", item.Author)
	assert.Equal(t, 12.50, item.Price)
	assert.Equal(t, "https://cdn/cover.png", item.ImageURL)
}

func TestAddBookValidation(t *testing.T) {
	repo := catalogOf(entity.Book{ID: "b1", Title: "Echoes"})
	svc := NewService(newMemCache(), repo)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "client-1", "b1", 0)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, "client-1", "missing", 1)
	assert.ErrorIs(t, err, ports.ErrBookNotFound)
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	repo := catalogOf(entity.Book{ID: "b1", Title: "Echoes", Price: 10})
	svc := NewService(newMemCache(), repo)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "client-1", "b1", 2)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, "client-1", "b1", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// The empty cart round-trips as empty, not as an error.
	c, err = svc.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestRemoveAndClear(t *testing.T) {
	repo := catalogOf(
		entity.Book{ID: "b1", Title: "Echoes", Price: 10},
		entity.Book{ID: "b2", Title: "Tides", Price: 8},
	)
	svc := NewService(newMemCache(), repo)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "client-1", "b1", 1)
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, "client-1", "b2", 1)
	require.NoError(t, err)

	c, err := svc.RemoveBook(ctx, "client-1", "b1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b2", c.Items[0].BookID)

	require.NoError(t, svc.Clear(ctx, "client-1"))
	c, err = svc.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestLoadDropsInvalidEntries(t *testing.T) {
	cache := newMemCache()
	cache.entries["cart:client-1"] = `[
		{"bookId":"b1","title":"Echoes","price":10,"quantity":2},
		{"bookId":"","title":"no id","price":5,"quantity":1},
		{"bookId":"b2","title":"zero qty","price":5,"quantity":0},
		"not an object",
		{"bookId":"b3","title":"Tides","price":8,"quantity":1}
	]`
	svc := NewService(cache, catalogOf())

	c, err := svc.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "b1", c.Items[0].BookID)
	assert.Equal(t, "b3", c.Items[1].BookID)
}

func TestLoadUnreadableCartStartsFresh(t *testing.T) {
	cache := newMemCache()
	cache.entries["cart:client-1"] = `{broken`
	svc := NewService(cache, catalogOf())

	c, err := svc.Get(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCartsAreIsolatedPerClient(t *testing.T) {
	repo := catalogOf(entity.Book{ID: "b1", Title: "Echoes", Price: 10})
	svc := NewService(newMemCache(), repo)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "client-1", "b1", 1)
	require.NoError(t, err)

	other, err := svc.Get(ctx, "client-2")
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}
