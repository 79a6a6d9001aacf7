package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type ReservationService interface {
	Create(ctx context.Context, memberID string, bookID int64) (*models.Reservation, error)
	// FulfillOldest promotes the longest-waiting PENDING reservation for the
	// book. It returns nil when nobody is waiting.
	FulfillOldest(ctx context.Context, bookID int64) (*models.Reservation, error)
	// Cancel withdraws a reservation. An empty memberID skips the owner check.
	Cancel(ctx context.Context, reservationID int64, memberID string) (*models.Reservation, error)
	CompletePickup(ctx context.Context, reservationID int64) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, reservationID int64, status models.ReservationStatus) (*models.Reservation, error)
	Get(ctx context.Context, reservationID int64) (*models.Reservation, error)
	MemberReservations(ctx context.Context, memberID string) ([]models.Reservation, error)
	ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error)
	// NotifyReady sends the pickup notice for every READY_FOR_PICKUP
	// reservation that has not been announced yet.
	NotifyReady(ctx context.Context) (int, error)
}

// reservationTransitions lists the moves UpdateStatus accepts.
var reservationTransitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:        {models.ReservationReadyForPickup, models.ReservationCancelled},
	models.ReservationReadyForPickup: {models.ReservationFulfilled, models.ReservationCancelled},
}

type reservationService struct {
	store    repository.Store
	notifier Notifier
	logger   *zap.Logger
	clock    Clock
}

func NewReservationService(store repository.Store, notifier Notifier, logger *zap.Logger, clock Clock) ReservationService {
	return &reservationService{store: store, notifier: notifier, logger: logger, clock: clock}
}

func (s *reservationService) Create(ctx context.Context, memberID string, bookID int64) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		member, err := tx.Members().GetByID(ctx, memberID)
		if err != nil {
			return lookupError("reserve: load member", err, ErrMemberNotFound)
		}
		if !member.Active {
			return ErrMemberInactive
		}
		if _, err := tx.Books().GetByID(ctx, bookID); err != nil {
			return lookupError("reserve: load book", err, ErrBookNotFound)
		}

		exists, err := tx.Reservations().ExistsPending(ctx, memberID, bookID)
		if err != nil {
			return systemError("reserve: check duplicate", err)
		}
		if exists {
			return ErrDuplicateReservation
		}

		waiting, err := tx.Reservations().CountPending(ctx, bookID)
		if err != nil {
			return systemError("reserve: count queue", err)
		}

		res = &models.Reservation{
			MemberID:        memberID,
			BookID:          bookID,
			ReservationTime: s.clock.now(),
			Status:          models.ReservationPending,
			PriorityNumber:  int(waiting) + 1,
		}
		if err := tx.Reservations().Create(ctx, res); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateReservation
			}
			return systemError("reserve: create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation_created",
		zap.Int64("reservation_id", res.ID),
		zap.String("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Int("priority", res.PriorityNumber))
	return res, nil
}

func (s *reservationService) FulfillOldest(ctx context.Context, bookID int64) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		res, err = promoteOldestReservation(ctx, tx, bookID, s.clock.now())
		return err
	})
	if err != nil || res == nil {
		return nil, err
	}
	announceReady(ctx, s.store, s.notifier, s.logger, res, s.clock.now())
	return res, nil
}

// promoteOldestReservation moves the head of the book's queue to
// READY_FOR_PICKUP inside tx. It returns nil when the queue is empty.
func promoteOldestReservation(ctx context.Context, tx repository.Store, bookID int64, now time.Time) (*models.Reservation, error) {
	res, err := tx.Reservations().OldestPending(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, systemError("load oldest reservation", err)
	}
	res.Status = models.ReservationReadyForPickup
	res.ReadyAt = &now
	res.NotifiedAt = nil
	if err := tx.Reservations().Update(ctx, res); err != nil {
		return nil, systemError("promote reservation", err)
	}
	return res, nil
}

// announceReady runs after commit. A failed MarkNotified leaves the
// reservation for the NotifyReady sweep.
func announceReady(ctx context.Context, store repository.Store, notifier Notifier, logger *zap.Logger, res *models.Reservation, now time.Time) {
	book := bookForNotice(ctx, store, logger, res.BookID)
	notifier.Notify(ctx, reservationReadyNotice(res, book))
	if err := store.Reservations().MarkNotified(ctx, res.ID, now); err != nil {
		logger.Warn("reservation_mark_notified_failed", zap.Int64("reservation_id", res.ID), zap.Error(err))
		return
	}
	res.NotifiedAt = &now
	logger.Info("reservation_ready",
		zap.Int64("reservation_id", res.ID),
		zap.String("member_id", res.MemberID),
		zap.Int64("book_id", res.BookID))
}

func (s *reservationService) Cancel(ctx context.Context, reservationID int64, memberID string) (*models.Reservation, error) {
	var (
		res      *models.Reservation
		promoted *models.Reservation
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return lookupError("cancel reservation: load", err, ErrReservationNotFound)
		}
		if memberID != "" && res.MemberID != memberID {
			return ErrReservationNotFound
		}
		wasReady := res.Status == models.ReservationReadyForPickup
		if err := s.transition(ctx, tx, res, models.ReservationCancelled); err != nil {
			return err
		}
		// a cancelled pickup frees the copy for the next member in line
		if wasReady {
			promoted, err = promoteOldestReservation(ctx, tx, res.BookID, s.clock.now())
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation_cancelled", zap.Int64("reservation_id", res.ID), zap.String("member_id", res.MemberID))
	if promoted != nil {
		announceReady(ctx, s.store, s.notifier, s.logger, promoted, s.clock.now())
	}
	return res, nil
}

func (s *reservationService) CompletePickup(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return s.UpdateStatus(ctx, reservationID, models.ReservationFulfilled)
}

func (s *reservationService) UpdateStatus(ctx context.Context, reservationID int64, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.Valid() {
		return nil, ErrInvalidInput.withf("unknown reservation status %q", status)
	}
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return lookupError("update reservation: load", err, ErrReservationNotFound)
		}
		return s.transition(ctx, tx, res, status)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation_status_updated", zap.Int64("reservation_id", res.ID), zap.String("status", string(status)))
	if status == models.ReservationReadyForPickup {
		announceReady(ctx, s.store, s.notifier, s.logger, res, s.clock.now())
	}
	return res, nil
}

func (s *reservationService) transition(ctx context.Context, tx repository.Store, res *models.Reservation, to models.ReservationStatus) error {
	allowed := false
	for _, next := range reservationTransitions[res.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrReservationNotPending.withf("reservation %d cannot move from %s to %s", res.ID, res.Status, to)
	}
	res.Status = to
	if to == models.ReservationReadyForPickup {
		now := s.clock.now()
		res.ReadyAt = &now
		res.NotifiedAt = nil
	}
	return systemError("update reservation", tx.Reservations().Update(ctx, res))
}

func (s *reservationService) Get(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	res, err := s.store.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return nil, lookupError("get reservation", err, ErrReservationNotFound)
	}
	return res, nil
}

func (s *reservationService) MemberReservations(ctx context.Context, memberID string) ([]models.Reservation, error) {
	list, err := s.store.Reservations().ListByMember(ctx, memberID)
	return list, systemError("list member reservations", err)
}

func (s *reservationService) ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	if !status.Valid() {
		return nil, ErrInvalidInput.withf("unknown reservation status %q", status)
	}
	list, err := s.store.Reservations().ListByStatus(ctx, status)
	return list, systemError("list reservations", err)
}

func (s *reservationService) NotifyReady(ctx context.Context) (int, error) {
	ready, err := s.store.Reservations().ListReadyUnnotified(ctx)
	if err != nil {
		return 0, systemError("list ready reservations", err)
	}
	sent := 0
	for i := range ready {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		announceReady(ctx, s.store, s.notifier, s.logger, &ready[i], s.clock.now())
		if ready[i].NotifiedAt != nil {
			sent++
		}
	}
	s.logger.Info("reservation_ready_sweep_complete", zap.Int("candidates", len(ready)), zap.Int("notified", sent))
	return sent, nil
}
