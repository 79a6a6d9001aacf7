package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libraryhub/internal/microservices/http-api/models"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	Update(ctx context.Context, reservation *models.Reservation) error
	ExistsPending(ctx context.Context, memberID string, bookID int64) (bool, error)
	CountPending(ctx context.Context, bookID int64) (int64, error)
	// OldestPending returns the PENDING reservation with the earliest
	// reservation time (ties broken by id), or ErrNotFound.
	OldestPending(ctx context.Context, bookID int64) (*models.Reservation, error)
	ListByMember(ctx context.Context, memberID string) ([]models.Reservation, error)
	ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error)
	ListReadyUnnotified(ctx context.Context) ([]models.Reservation, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return translate("create reservation", r.db.WithContext(ctx).Create(reservation).Error)
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, translate("get reservation", err)
	}
	return &res, nil
}

func (r *reservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return translate("update reservation", r.db.WithContext(ctx).Save(reservation).Error)
}

func (r *reservationRepository) ExistsPending(ctx context.Context, memberID string, bookID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("member_id = ? AND book_id = ? AND status = ?", memberID, bookID, models.ReservationPending).
		Count(&count).Error; err != nil {
		return false, translate("check pending reservation", err)
	}
	return count > 0, nil
}

func (r *reservationRepository) CountPending(ctx context.Context, bookID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("book_id = ? AND status = ?", bookID, models.ReservationPending).
		Count(&count).Error
	return count, translate("count pending reservations", err)
}

// OldestPending locks the chosen row so two returns of the same title never
// hand the same reservation two copies.
func (r *reservationRepository) OldestPending(ctx context.Context, bookID int64) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND status = ?", bookID, models.ReservationPending).
		Order("reservation_time asc, id asc").
		First(&res).Error
	if err != nil {
		return nil, translate("oldest pending reservation", err)
	}
	return &res, nil
}

func (r *reservationRepository) ListByMember(ctx context.Context, memberID string) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Order("reservation_time desc, id desc").Find(&list).Error
	return list, translate("list member reservations", err)
}

func (r *reservationRepository) ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("reservation_time asc, id asc").Find(&list).Error
	return list, translate("list reservations by status", err)
}

func (r *reservationRepository) ListReadyUnnotified(ctx context.Context) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND notified_at IS NULL", models.ReservationReadyForPickup).
		Order("ready_at asc, id asc").
		Find(&list).Error
	return list, translate("list ready reservations", err)
}

func (r *reservationRepository) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("id = ?", id).Update("notified_at", at)
	if res.Error != nil {
		return translate("mark reservation notified", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
