package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type bookRepo struct{ s *Store }

func (r bookRepo) Create(ctx context.Context, book *models.Book) error {
	return r.s.do(func(d *state) error {
		for _, b := range d.books {
			if b.ISBN == book.ISBN {
				return repository.ErrDuplicate
			}
		}
		if book.ID == 0 {
			book.ID = d.nextID()
		}
		r.s.stamp(&book.CreatedAt, &book.UpdatedAt)
		d.books[book.ID] = *book
		return nil
	})
}

func (r bookRepo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var out models.Book
	err := r.s.do(func(d *state) error {
		b, ok := d.books[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r bookRepo) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var out *models.Book
	err := r.s.do(func(d *state) error {
		for _, b := range d.books {
			if b.ISBN == isbn {
				out = &b
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r bookRepo) List(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	var all []models.Book
	_ = r.s.do(func(d *state) error {
		all = sortedBooks(d.books, func(models.Book) bool { return true })
		return nil
	})

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start >= len(all) {
		return []models.Book{}, total, nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], total, nil
}

func (r bookRepo) Search(ctx context.Context, query string) ([]models.Book, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return []models.Book{}, nil
	}
	var out []models.Book
	_ = r.s.do(func(d *state) error {
		out = sortedBooks(d.books, func(b models.Book) bool {
			hay := strings.ToLower(b.Title + " " + b.Author + " " + b.ISBN)
			for _, t := range tokens {
				if !strings.Contains(hay, t) {
					return false
				}
			}
			return true
		})
		return nil
	})
	return out, nil
}

func sortedBooks(m map[int64]models.Book, keep func(models.Book) bool) []models.Book {
	out := make([]models.Book, 0, len(m))
	for _, b := range m {
		if keep(b) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Book) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ID, b.ID))
	})
	return out
}

type copyRepo struct{ s *Store }

func (r copyRepo) Create(ctx context.Context, bc *models.BookCopy) error {
	return r.s.do(func(d *state) error {
		if bc.ID == 0 {
			bc.ID = d.nextID()
		}
		if bc.Status == "" {
			bc.Status = models.CopyAvailable
		}
		r.s.stamp(&bc.CreatedAt, &bc.UpdatedAt)
		d.copies[bc.ID] = *bc
		return nil
	})
}

func (r copyRepo) GetByID(ctx context.Context, id int64) (*models.BookCopy, error) {
	var out models.BookCopy
	err := r.s.do(func(d *state) error {
		c, ok := d.copies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r copyRepo) ListByBook(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	return r.list(bookID, func(models.BookCopy) bool { return true }), nil
}

func (r copyRepo) ListAvailable(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	return r.list(bookID, func(c models.BookCopy) bool { return c.Status == models.CopyAvailable }), nil
}

func (r copyRepo) CountByStatus(ctx context.Context, bookID int64, status models.CopyStatus) (int64, error) {
	return int64(len(r.list(bookID, func(c models.BookCopy) bool { return c.Status == status }))), nil
}

func (r copyRepo) TransitionStatus(ctx context.Context, id int64, to models.CopyStatus, from ...models.CopyStatus) (bool, error) {
	var ok bool
	err := r.s.do(func(d *state) error {
		c, found := d.copies[id]
		if !found || !slices.Contains(from, c.Status) {
			return nil
		}
		c.Status = to
		r.s.stamp(nil, &c.UpdatedAt)
		d.copies[id] = c
		ok = true
		return nil
	})
	return ok, err
}

func (r copyRepo) list(bookID int64, keep func(models.BookCopy) bool) []models.BookCopy {
	out := []models.BookCopy{}
	_ = r.s.do(func(d *state) error {
		for _, c := range d.copies {
			if c.BookID == bookID && keep(c) {
				out = append(out, c)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.BookCopy) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
