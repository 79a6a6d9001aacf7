package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type loanRepo struct{ s *Store }

func (r loanRepo) Create(ctx context.Context, loan *models.Loan) error {
	return r.s.do(func(d *state) error {
		if loan.ID == 0 {
			loan.ID = d.nextID()
		}
		if loan.Status == "" {
			loan.Status = models.LoanActive
		}
		r.s.stamp(&loan.CreatedAt, &loan.UpdatedAt)
		d.loans[loan.ID] = *loan
		return nil
	})
}

func (r loanRepo) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	var out models.Loan
	err := r.s.do(func(d *state) error {
		l, ok := d.loans[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r loanRepo) Update(ctx context.Context, loan *models.Loan) error {
	return r.s.do(func(d *state) error {
		if _, ok := d.loans[loan.ID]; !ok {
			return repository.ErrNotFound
		}
		r.s.stamp(nil, &loan.UpdatedAt)
		d.loans[loan.ID] = *loan
		return nil
	})
}

func (r loanRepo) CountOpenByMember(ctx context.Context, memberID string) (int64, error) {
	open := r.filter(func(l models.Loan) bool { return l.MemberID == memberID && l.Status.Open() })
	return int64(len(open)), nil
}

func (r loanRepo) ListByMember(ctx context.Context, memberID string, statuses ...models.LoanStatus) ([]models.Loan, error) {
	out := r.filter(func(l models.Loan) bool {
		return l.MemberID == memberID && (len(statuses) == 0 || slices.Contains(statuses, l.Status))
	})
	slices.SortFunc(out, func(a, b models.Loan) int {
		return cmp.Or(b.CheckoutDate.Compare(a.CheckoutDate), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r loanRepo) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.Loan, error) {
	out := r.filter(func(l models.Loan) bool { return l.Status == status })
	sortByDue(out)
	return out, nil
}

func (r loanRepo) ListDueBefore(ctx context.Context, status models.LoanStatus, day time.Time) ([]models.Loan, error) {
	out := r.filter(func(l models.Loan) bool { return l.Status == status && l.DueDate.Before(day) })
	sortByDue(out)
	return out, nil
}

func (r loanRepo) TransitionStatus(ctx context.Context, id int64, from, to models.LoanStatus) (bool, error) {
	var ok bool
	err := r.s.do(func(d *state) error {
		l, found := d.loans[id]
		if !found || l.Status != from {
			return nil
		}
		l.Status = to
		r.s.stamp(nil, &l.UpdatedAt)
		d.loans[id] = l
		ok = true
		return nil
	})
	return ok, err
}

func (r loanRepo) filter(keep func(models.Loan) bool) []models.Loan {
	out := []models.Loan{}
	_ = r.s.do(func(d *state) error {
		for _, l := range d.loans {
			if keep(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	return out
}

func sortByDue(loans []models.Loan) {
	slices.SortFunc(loans, func(a, b models.Loan) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), cmp.Compare(a.ID, b.ID))
	})
}

type fineRepo struct{ s *Store }

func (r fineRepo) Create(ctx context.Context, fine *models.Fine) error {
	return r.s.do(func(d *state) error {
		if fine.ID == 0 {
			fine.ID = d.nextID()
		}
		if fine.Status == "" {
			fine.Status = models.FinePending
		}
		r.s.stamp(&fine.CreatedAt, &fine.UpdatedAt)
		d.fines[fine.ID] = *fine
		return nil
	})
}

func (r fineRepo) GetByID(ctx context.Context, id int64) (*models.Fine, error) {
	var out models.Fine
	err := r.s.do(func(d *state) error {
		f, ok := d.fines[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r fineRepo) Update(ctx context.Context, fine *models.Fine) error {
	return r.s.do(func(d *state) error {
		if _, ok := d.fines[fine.ID]; !ok {
			return repository.ErrNotFound
		}
		r.s.stamp(nil, &fine.UpdatedAt)
		d.fines[fine.ID] = *fine
		return nil
	})
}

func (r fineRepo) ListByMember(ctx context.Context, memberID string) ([]models.Fine, error) {
	return r.filterNewestFirst(func(f models.Fine) bool { return f.MemberID == memberID }), nil
}

func (r fineRepo) ListByStatus(ctx context.Context, status models.FineStatus) ([]models.Fine, error) {
	return r.filterNewestFirst(func(f models.Fine) bool { return status == "" || f.Status == status }), nil
}

func (r fineRepo) ListByLoan(ctx context.Context, loanID int64, reason models.FineReason) ([]models.Fine, error) {
	out := r.filterNewestFirst(func(f models.Fine) bool {
		return f.LoanID != nil && *f.LoanID == loanID && f.Reason == reason
	})
	slices.SortFunc(out, func(a, b models.Fine) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r fineRepo) TransitionStatus(ctx context.Context, id int64, to models.FineStatus, from ...models.FineStatus) (bool, error) {
	var ok bool
	err := r.s.do(func(d *state) error {
		f, found := d.fines[id]
		if !found || !slices.Contains(from, f.Status) {
			return nil
		}
		f.Status = to
		r.s.stamp(nil, &f.UpdatedAt)
		d.fines[id] = f
		ok = true
		return nil
	})
	return ok, err
}

func (r fineRepo) filterNewestFirst(keep func(models.Fine) bool) []models.Fine {
	out := []models.Fine{}
	_ = r.s.do(func(d *state) error {
		for _, f := range d.fines {
			if keep(f) {
				out = append(out, f)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Fine) int {
		return cmp.Or(b.IssueDate.Compare(a.IssueDate), cmp.Compare(b.ID, a.ID))
	})
	return out
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.s.do(func(d *state) error {
		if res.Status == "" {
			res.Status = models.ReservationPending
		}
		if res.Status == models.ReservationPending {
			for _, other := range d.reservations {
				if other.Status == models.ReservationPending && other.MemberID == res.MemberID && other.BookID == res.BookID {
					return repository.ErrDuplicate
				}
			}
		}
		if res.ID == 0 {
			res.ID = d.nextID()
		}
		r.s.stamp(&res.CreatedAt, &res.UpdatedAt)
		d.reservations[res.ID] = *res
		return nil
	})
}

func (r reservationRepo) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var out models.Reservation
	err := r.s.do(func(d *state) error {
		res, ok := d.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r reservationRepo) Update(ctx context.Context, res *models.Reservation) error {
	return r.s.do(func(d *state) error {
		if _, ok := d.reservations[res.ID]; !ok {
			return repository.ErrNotFound
		}
		r.s.stamp(nil, &res.UpdatedAt)
		d.reservations[res.ID] = *res
		return nil
	})
}

func (r reservationRepo) ExistsPending(ctx context.Context, memberID string, bookID int64) (bool, error) {
	found := r.filter(func(res models.Reservation) bool {
		return res.MemberID == memberID && res.BookID == bookID && res.Status == models.ReservationPending
	})
	return len(found) > 0, nil
}

func (r reservationRepo) CountPending(ctx context.Context, bookID int64) (int64, error) {
	found := r.filter(func(res models.Reservation) bool {
		return res.BookID == bookID && res.Status == models.ReservationPending
	})
	return int64(len(found)), nil
}

func (r reservationRepo) OldestPending(ctx context.Context, bookID int64) (*models.Reservation, error) {
	found := r.filter(func(res models.Reservation) bool {
		return res.BookID == bookID && res.Status == models.ReservationPending
	})
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r reservationRepo) ListByMember(ctx context.Context, memberID string) ([]models.Reservation, error) {
	out := r.filter(func(res models.Reservation) bool { return res.MemberID == memberID })
	slices.Reverse(out)
	return out, nil
}

func (r reservationRepo) ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	return r.filter(func(res models.Reservation) bool { return res.Status == status }), nil
}

func (r reservationRepo) ListReadyUnnotified(ctx context.Context) ([]models.Reservation, error) {
	return r.filter(func(res models.Reservation) bool {
		return res.Status == models.ReservationReadyForPickup && res.NotifiedAt == nil
	}), nil
}

func (r reservationRepo) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	return r.s.do(func(d *state) error {
		res, ok := d.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		res.NotifiedAt = &at
		r.s.stamp(nil, &res.UpdatedAt)
		d.reservations[id] = res
		return nil
	})
}

// filter returns matches oldest first by reservation time, ties by id.
func (r reservationRepo) filter(keep func(models.Reservation) bool) []models.Reservation {
	out := []models.Reservation{}
	_ = r.s.do(func(d *state) error {
		for _, res := range d.reservations {
			if keep(res) {
				out = append(out, res)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Reservation) int {
		return cmp.Or(a.ReservationTime.Compare(b.ReservationTime), cmp.Compare(a.ID, b.ID))
	})
	return out
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	return r.s.do(func(d *state) error {
		if tx.ID == 0 {
			tx.ID = d.nextID()
		}
		r.s.stamp(&tx.CreatedAt, nil)
		d.transactions[tx.ID] = *tx
		return nil
	})
}

func (r transactionRepo) ListByMember(ctx context.Context, memberID string) ([]models.Transaction, error) {
	out := []models.Transaction{}
	_ = r.s.do(func(d *state) error {
		for _, t := range d.transactions {
			if t.MemberID == memberID {
				out = append(out, t)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Transaction) int {
		return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.s.do(func(d *state) error {
		if n.ID == 0 {
			n.ID = d.nextID()
		}
		r.s.stamp(&n.CreatedAt, nil)
		d.notifications[n.ID] = *n
		return nil
	})
}

func (r notificationRepo) GetUnreadByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return r.list(userID, 0, true), nil
}

func (r notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return r.list(userID, limit, false), nil
}

func (r notificationRepo) MarkAsRead(ctx context.Context, userID string, notificationID int64) (bool, error) {
	var ok bool
	err := r.s.do(func(d *state) error {
		n, found := d.notifications[notificationID]
		if !found || n.UserID != userID {
			return nil
		}
		n.Read = true
		d.notifications[notificationID] = n
		ok = true
		return nil
	})
	return ok, err
}

func (r notificationRepo) MarkAllAsRead(ctx context.Context, userID string) error {
	return r.s.do(func(d *state) error {
		for id, n := range d.notifications {
			if n.UserID == userID && !n.Read {
				n.Read = true
				d.notifications[id] = n
			}
		}
		return nil
	})
}

func (r notificationRepo) list(userID string, limit int, unreadOnly bool) []models.Notification {
	out := []models.Notification{}
	_ = r.s.do(func(d *state) error {
		for _, n := range d.notifications {
			if n.UserID == userID && (!unreadOnly || !n.Read) {
				out = append(out, n)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Notification) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type loanHistoryRepo struct{ s *Store }

func (r loanHistoryRepo) Create(ctx context.Context, entry *models.LoanHistory) error {
	return r.s.do(func(d *state) error {
		if entry.ID == 0 {
			entry.ID = d.nextID()
		}
		r.s.stamp(&entry.CreatedAt, nil)
		d.loanHistory[entry.ID] = *entry
		return nil
	})
}

func (r loanHistoryRepo) ListByMember(ctx context.Context, memberID string) ([]models.LoanHistory, error) {
	out := r.filter(func(h models.LoanHistory) bool { return h.MemberID == memberID })
	slices.SortFunc(out, func(a, b models.LoanHistory) int {
		return cmp.Or(b.ActionDate.Compare(a.ActionDate), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r loanHistoryRepo) ListByLoan(ctx context.Context, loanID int64) ([]models.LoanHistory, error) {
	out := r.filter(func(h models.LoanHistory) bool { return h.LoanID == loanID })
	slices.SortFunc(out, func(a, b models.LoanHistory) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r loanHistoryRepo) filter(keep func(models.LoanHistory) bool) []models.LoanHistory {
	out := []models.LoanHistory{}
	_ = r.s.do(func(d *state) error {
		for _, h := range d.loanHistory {
			if keep(h) {
				out = append(out, h)
			}
		}
		return nil
	})
	return out
}
