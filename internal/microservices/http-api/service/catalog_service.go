package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

// Availability counts the copies of one book by status.
type Availability struct {
	BookID     int64 `json:"book_id"`
	Total      int   `json:"total"`
	Available  int   `json:"available"`
	CheckedOut int   `json:"checked_out"`
	InRepair   int   `json:"in_repair"`
	Lost       int   `json:"lost"`
	// Waiting is the number of PENDING reservations.
	Waiting int `json:"waiting"`
}

type CatalogService interface {
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context, page, pageSize int) ([]models.Book, int64, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	AddCopy(ctx context.Context, bookID int64, bookCopy *models.BookCopy) (*models.BookCopy, error)
	ListCopies(ctx context.Context, bookID int64) ([]models.BookCopy, error)
	Availability(ctx context.Context, bookID int64) (*Availability, error)
	// SetCopyStatus moves a copy on the shelf in and out of repair. Copies
	// on loan change only through checkout and return.
	SetCopyStatus(ctx context.Context, copyID int64, status models.CopyStatus) (*models.BookCopy, error)
}

type catalogService struct {
	store    repository.Store
	notifier Notifier
	logger   *zap.Logger
	clock    Clock
}

func NewCatalogService(store repository.Store, notifier Notifier, logger *zap.Logger, clock Clock) CatalogService {
	return &catalogService{store: store, notifier: notifier, logger: logger, clock: clock}
}

func (s *catalogService) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	book.Title = strings.TrimSpace(book.Title)
	if book.Title == "" {
		return nil, ErrInvalidInput.withf("title is required")
	}
	if book.Pages < 0 || book.PublicationYear < 0 {
		return nil, ErrInvalidInput.withf("pages and publication year must not be negative")
	}
	isbn, err := NormalizeISBN(book.ISBN)
	if err != nil {
		return nil, err
	}
	book.ISBN = isbn

	if err := s.store.Books().Create(ctx, book); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateISBN
		}
		return nil, systemError("create book", err)
	}
	s.logger.Info("book_created", zap.Int64("book_id", book.ID), zap.String("isbn", book.ISBN))
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("get book", err, ErrBookNotFound)
	}
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	list, total, err := s.store.Books().List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, systemError("list books", err)
	}
	return list, total, nil
}

func (s *catalogService) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	list, err := s.store.Books().Search(ctx, query)
	return list, systemError("search books", err)
}

func (s *catalogService) AddCopy(ctx context.Context, bookID int64, bookCopy *models.BookCopy) (*models.BookCopy, error) {
	var promoted *models.Reservation
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Books().GetByID(ctx, bookID); err != nil {
			return lookupError("add copy: load book", err, ErrBookNotFound)
		}
		bookCopy.BookID = bookID
		bookCopy.Status = models.CopyAvailable
		if err := tx.Copies().Create(ctx, bookCopy); err != nil {
			return systemError("add copy", err)
		}
		var err error
		promoted, err = promoteOldestReservation(ctx, tx, bookID, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("copy_added", zap.Int64("book_id", bookID), zap.Int64("copy_id", bookCopy.ID))
	s.announce(ctx, promoted)
	return bookCopy, nil
}

// announce tells the member a new copy was held for, after commit.
func (s *catalogService) announce(ctx context.Context, promoted *models.Reservation) {
	if promoted != nil {
		announceReady(ctx, s.store, s.notifier, s.logger, promoted, s.clock.now())
	}
}

func (s *catalogService) ListCopies(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	if _, err := s.store.Books().GetByID(ctx, bookID); err != nil {
		return nil, lookupError("list copies: load book", err, ErrBookNotFound)
	}
	list, err := s.store.Copies().ListByBook(ctx, bookID)
	return list, systemError("list copies", err)
}

func (s *catalogService) Availability(ctx context.Context, bookID int64) (*Availability, error) {
	copies, err := s.ListCopies(ctx, bookID)
	if err != nil {
		return nil, err
	}
	a := &Availability{BookID: bookID, Total: len(copies)}
	for _, c := range copies {
		switch c.Status {
		case models.CopyAvailable:
			a.Available++
		case models.CopyCheckedOut:
			a.CheckedOut++
		case models.CopyInRepair:
			a.InRepair++
		case models.CopyLost:
			a.Lost++
		}
	}
	waiting, err := s.store.Reservations().CountPending(ctx, bookID)
	if err != nil {
		return nil, systemError("availability: count reservations", err)
	}
	a.Waiting = int(waiting)
	return a, nil
}

func (s *catalogService) SetCopyStatus(ctx context.Context, copyID int64, status models.CopyStatus) (*models.BookCopy, error) {
	var from models.CopyStatus
	switch status {
	case models.CopyInRepair:
		from = models.CopyAvailable
	case models.CopyAvailable:
		from = models.CopyInRepair
	default:
		return nil, ErrInvalidInput.withf("copy status can only be set to %s or %s", models.CopyAvailable, models.CopyInRepair)
	}

	var (
		bookCopy *models.BookCopy
		promoted *models.Reservation
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		c, err := tx.Copies().GetByID(ctx, copyID)
		if err != nil {
			return lookupError("set copy status: load copy", err, ErrCopyNotFound)
		}
		ok, err := tx.Copies().TransitionStatus(ctx, copyID, status, from)
		if err != nil {
			return systemError("set copy status", err)
		}
		if !ok {
			return ErrInvalidInput.withf("copy %d is %s", copyID, c.Status)
		}
		c.Status = status
		bookCopy = c

		if status != models.CopyAvailable {
			return nil
		}
		promoted, err = promoteOldestReservation(ctx, tx, c.BookID, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("copy_status_changed", zap.Int64("copy_id", copyID), zap.String("status", string(status)))
	s.announce(ctx, promoted)
	return bookCopy, nil
}
