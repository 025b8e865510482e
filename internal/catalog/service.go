// Package catalog manages the book catalog: administrative CRUD with
// asset uploads, the cached storefront listing, and free-PDF delivery.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/pkg/cache"
)

// ErrNotFreeBook is returned when a free-PDF delivery targets a paid title.
var ErrNotFreeBook = errors.New("book is not a free title")

const listCacheTTL = 5 * time.Minute

var _ ports.CatalogService = (*Service)(nil)

// Service implements ports.CatalogService.
type Service struct {
	repo   ports.BookRepository
	blobs  ports.BlobStore
	mailer ports.Mailer
	cache  cache.Cache
}

func NewService(repo ports.BookRepository, blobs ports.BlobStore, mailer ports.Mailer, c cache.Cache) *Service {
	return &Service{repo: repo, blobs: blobs, mailer: mailer, cache: c}
}

// List returns the full catalog, served from cache when fresh.
func (s *Service) List(ctx context.Context) ([]entity.Book, error) {
	key := s.cache.GenerateKey("books", "all")
	if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
		var books []entity.Book
		if err := json.Unmarshal([]byte(raw), &books); err == nil {
			return books, nil
		}
		// Corrupt cache entry: fall through to the store.
	}

	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list books: %w", err)
	}

	if b, err := json.Marshal(books); err == nil {
		if err := s.cache.Set(ctx, key, b, listCacheTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache book list", "error", err)
		}
	}
	return books, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrBookNotFound) {
			return nil, ports.ErrBookNotFound
		}
		return nil, fmt.Errorf("catalog: get book %s: %w", id, err)
	}
	return book, nil
}

// Create uploads the assets first, then writes the record. The ID and
// creation timestamp are server-assigned; client values are not trusted.
func (s *Service) Create(ctx context.Context, input ports.CreateBookInput) (*entity.Book, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("catalog: title is required")
	}
	if input.Price < 0 {
		return nil, fmt.Errorf("catalog: price must be non-negative, got %v", input.Price)
	}

	id := uuid.NewString()
	book := &entity.Book{
		ID:          id,
		Title:       input.Title,
		Author:      input.Author,
		Bio:         input.Bio,
		Description: input.Description,
		Price:       input.Price,
		IsFree:      input.IsFree,
		CreatedAt:   time.Now().UTC(),
	}

	if input.Cover != nil {
		url, err := s.blobs.Put(ctx, assetName(id, "cover", input.Cover.Name), *input.Cover)
		if err != nil {
			return nil, fmt.Errorf("catalog: upload cover: %w", err)
		}
		book.CoverURL = url
	}
	if input.PDF != nil {
		url, err := s.blobs.Put(ctx, assetName(id, "pdf", input.PDF.Name), *input.PDF)
		if err != nil {
			return nil, fmt.Errorf("catalog: upload pdf: %w", err)
		}
		book.PDFURL = url
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("catalog: create book: %w", err)
	}

	s.invalidateList(ctx)
	slog.InfoContext(ctx, "book created", "book_id", id, "title", book.Title)
	return book, nil
}

// Update applies a partial edit. Asset URLs are only replaced when a
// new upload is supplied; everything else merges field by field.
func (s *Service) Update(ctx context.Context, id string, input ports.UpdateBookInput) (*entity.Book, error) {
	patch := entity.BookPatch{
		Title:       input.Title,
		Author:      input.Author,
		Bio:         input.Bio,
		Description: input.Description,
		Price:       input.Price,
		IsFree:      input.IsFree,
	}

	if input.Cover != nil {
		url, err := s.blobs.Put(ctx, assetName(id, "cover", input.Cover.Name), *input.Cover)
		if err != nil {
			return nil, fmt.Errorf("catalog: upload cover: %w", err)
		}
		patch.CoverURL = &url
	}
	if input.PDF != nil {
		url, err := s.blobs.Put(ctx, assetName(id, "pdf", input.PDF.Name), *input.PDF)
		if err != nil {
			return nil, fmt.Errorf("catalog: upload pdf: %w", err)
		}
		patch.PDFURL = &url
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, ports.ErrBookNotFound) {
			return nil, ports.ErrBookNotFound
		}
		return nil, fmt.Errorf("catalog: update book %s: %w", id, err)
	}

	s.invalidateList(ctx)
	return s.Get(ctx, id)
}

// Delete removes the record only. Uploaded assets stay in the blob
// store and past orders keep their title snapshots.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ports.ErrBookNotFound) {
			return ports.ErrBookNotFound
		}
		return fmt.Errorf("catalog: delete book %s: %w", id, err)
	}
	s.invalidateList(ctx)
	slog.InfoContext(ctx, "book deleted", "book_id", id)
	return nil
}

// SendFreePDF emails the download link for a free title. Delivery is
// fire-and-forget; the store does not track whether the mail arrived.
func (s *Service) SendFreePDF(ctx context.Context, bookID, email string) error {
	if email == "" {
		return fmt.Errorf("catalog: recipient email is required")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if !book.IsFree {
		return fmt.Errorf("%w: %s", ErrNotFreeBook, book.Title)
	}
	if book.PDFURL == "" {
		return fmt.Errorf("catalog: book %s has no PDF asset", bookID)
	}

	if err := s.mailer.SendPDFLink(ctx, email, book.Title, book.Author, book.PDFURL); err != nil {
		return fmt.Errorf("catalog: send pdf for %s: %w", bookID, err)
	}
	slog.InfoContext(ctx, "free pdf sent", "book_id", bookID, "email", email)
	return nil
}

func (s *Service) invalidateList(ctx context.Context) {
	if err := s.cache.Del(ctx, s.cache.GenerateKey("books", "all")); err != nil {
		slog.WarnContext(ctx, "failed to invalidate book list cache", "error", err)
	}
}

// assetName builds a stable object name: books/<id>/<kind><ext>.
func assetName(bookID, kind, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("books/%s/%s%s", bookID, kind, ext)
}
