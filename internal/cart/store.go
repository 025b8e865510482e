// Package cart persists per-client shopping carts in redis. Each cart
// is stored as a JSON array keyed by the client identifier; entries are
// validated individually on load so one malformed item never discards
// the rest of the cart.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/pkg/cache"
)

const cartTTL = 14 * 24 * time.Hour

var _ ports.CartService = (*Service)(nil)

// Service implements ports.CartService.
type Service struct {
	cache cache.Cache
	books ports.BookRepository
}

func NewService(c cache.Cache, books ports.BookRepository) *Service {
	return &Service{cache: c, books: books}
}

func (s *Service) Get(ctx context.Context, clientID string) (*entity.Cart, error) {
	return s.load(ctx, clientID)
}

// AddBook resolves the book and merges it into the cart. Quantities for
// an already-present book accumulate.
func (s *Service) AddBook(ctx context.Context, clientID, bookID string, quantity int) (*entity.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("cart: quantity must be at least 1, got %d", quantity)
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, ports.ErrBookNotFound) {
			return nil, ports.ErrBookNotFound
		}
		return nil, fmt.Errorf("cart: resolve book %s: %w", bookID, err)
	}

	c, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	c.Add(entity.CartItem{
		BookID:   book.ID,
		Title:    book.Title,
		Author:   book.Author,
		ImageURL: book.CoverURL,
		Price:    book.Price,
		Quantity: quantity,
		IsFree:   book.IsFree,
		PDFURL:   book.PDFURL,
		CoverURL: book.CoverURL,
	})

	if err := s.save(ctx, clientID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets the quantity for a book already in the cart.
// A quantity of zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, clientID, bookID string, quantity int) (*entity.Cart, error) {
	c, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.UpdateQuantity(bookID, quantity)
	if err := s.save(ctx, clientID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveBook(ctx context.Context, clientID, bookID string) (*entity.Cart, error) {
	c, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.Remove(bookID)
	if err := s.save(ctx, clientID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, clientID string) error {
	return s.cache.Del(ctx, s.key(clientID))
}

func (s *Service) key(clientID string) string {
	return s.cache.GenerateKey("cart", clientID)
}

func (s *Service) load(ctx context.Context, clientID string) (*entity.Cart, error) {
	raw, err := s.cache.Get(ctx, s.key(clientID))
	if err != nil {
		return nil, fmt.Errorf("cart: load %s: %w", clientID, err)
	}
	if raw == "" {
		return &entity.Cart{}, nil
	}

	// Decode entry by entry: an invalid element is dropped, not fatal.
	var rawItems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rawItems); err != nil {
		slog.WarnContext(ctx, "discarding unreadable cart", "client_id", clientID, "error", err)
		return &entity.Cart{}, nil
	}

	c := &entity.Cart{}
	for i, rawItem := range rawItems {
		var item entity.CartItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			slog.WarnContext(ctx, "dropping invalid cart entry", "client_id", clientID, "index", i, "error", err)
			continue
		}
		if item.BookID == "" || item.Quantity < 1 {
			slog.WarnContext(ctx, "dropping malformed cart entry", "client_id", clientID, "index", i, "book_id", item.BookID)
			continue
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, clientID string, c *entity.Cart) error {
	if len(c.Items) == 0 {
		return s.cache.Del(ctx, s.key(clientID))
	}
	b, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("cart: encode %s: %w", clientID, err)
	}
	if err := s.cache.Set(ctx, s.key(clientID), b, cartTTL); err != nil {
		return fmt.Errorf("cart: save %s: %w", clientID, err)
	}
	return nil
}
