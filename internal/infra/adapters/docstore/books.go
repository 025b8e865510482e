package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkpress/bookstore/internal/core/domain/entity"
	"github.com/inkpress/bookstore/internal/core/ports"
)

var _ ports.BookRepository = (*BookRepository)(nil)

// BookRepository is the SQLite implementation of ports.BookRepository.
type BookRepository struct {
	db *sql.DB
}

func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	const q = `
		INSERT INTO books
			(id, title, author, bio, description, price, is_free, cover_url, pdf_url, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		book.ID,
		book.Title,
		book.Author,
		book.Bio,
		book.Description,
		book.Price,
		boolToInt(book.IsFree),
		book.CoverURL,
		book.PDFURL,
		formatTime(book.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("docstore: create book %q: %w", book.ID, err)
	}
	return nil
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	const q = `
		SELECT id, title, author, bio, description, price, is_free, cover_url, pdf_url, created_at
		FROM   books
		WHERE  id = ?`

	book, err := scanBook(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get book %q: %w", id, err)
	}
	return book, nil
}

// Update applies a merge-style partial edit: only the fields set on the
// patch change, everything else keeps its stored value.
func (r *BookRepository) Update(ctx context.Context, id string, patch entity.BookPatch) error {
	const q = `
		UPDATE books SET
			title       = COALESCE(?, title),
			author      = COALESCE(?, author),
			bio         = COALESCE(?, bio),
			description = COALESCE(?, description),
			price       = COALESCE(?, price),
			is_free     = COALESCE(?, is_free),
			cover_url   = COALESCE(?, cover_url),
			pdf_url     = COALESCE(?, pdf_url)
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q,
		nullableText(patch.Title),
		nullableText(patch.Author),
		nullableText(patch.Bio),
		nullableText(patch.Description),
		nullableFloat(patch.Price),
		nullableBool(patch.IsFree),
		nullableText(patch.CoverURL),
		nullableText(patch.PDFURL),
		id,
	)
	if err != nil {
		return fmt.Errorf("docstore: update book %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: update book %q: %w", id, err)
	}
	if affected == 0 {
		return ports.ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("docstore: delete book %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: delete book %q: %w", id, err)
	}
	if affected == 0 {
		return ports.ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) List(ctx context.Context) ([]entity.Book, error) {
	const q = `
		SELECT id, title, author, bio, description, price, is_free, cover_url, pdf_url, created_at
		FROM   books
		ORDER  BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("docstore: list books: %w", err)
	}
	defer rows.Close()

	books := []entity.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore: list books: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list books: %w", err)
	}
	return books, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*entity.Book, error) {
	var (
		book      entity.Book
		isFree    int
		createdAt string
	)
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Bio,
		&book.Description,
		&book.Price,
		&isFree,
		&book.CoverURL,
		&book.PDFURL,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	book.IsFree = isFree != 0
	book.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableText(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}
