package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.do(func(d *state) error {
		for _, u := range d.users {
			if u.Username == user.Username || u.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		if user.ID == "" {
			user.ID = uuid.New().String()
		}
		if user.Role == "" {
			user.Role = models.RoleMember
		}
		r.s.stamp(&user.CreatedAt, &user.UpdatedAt)
		d.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) { u.Password = passwordHash })
}

func (r userRepo) MarkVerified(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.Verified = true })
}

func (r userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) { u.LastLogin = &at })
}

func (r userRepo) find(match func(models.User) bool) (*models.User, error) {
	var out *models.User
	err := r.s.do(func(d *state) error {
		for _, u := range d.users {
			if match(u) {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r userRepo) update(id string, fn func(*models.User)) error {
	return r.s.do(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&u)
		r.s.stamp(nil, &u.UpdatedAt)
		d.users[id] = u
		return nil
	})
}

type memberRepo struct{ s *Store }

func (r memberRepo) Create(ctx context.Context, member *models.Member) error {
	return r.s.do(func(d *state) error {
		if _, ok := d.members[member.UserID]; ok {
			return repository.ErrDuplicate
		}
		r.s.stamp(&member.CreatedAt, &member.UpdatedAt)
		stored := *member
		stored.User = nil
		d.members[member.UserID] = stored
		return nil
	})
}

func (r memberRepo) GetByID(ctx context.Context, userID string) (*models.Member, error) {
	var out models.Member
	err := r.s.do(func(d *state) error {
		m, ok := d.members[userID]
		if !ok {
			return repository.ErrNotFound
		}
		if u, ok := d.users[userID]; ok {
			m.User = &u
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memberRepo) List(ctx context.Context) ([]models.Member, error) {
	var out []models.Member
	_ = r.s.do(func(d *state) error {
		for _, m := range d.members {
			if u, ok := d.users[m.UserID]; ok {
				m.User = &u
			}
			out = append(out, m)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Member) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.UserID, b.UserID))
	})
	return out, nil
}

func (r memberRepo) AdjustFineBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.s.do(func(d *state) error {
		m, ok := d.members[userID]
		if !ok {
			return repository.ErrNotFound
		}
		m.FineBalance = decimal.Max(m.FineBalance.Add(delta), decimal.Zero)
		r.s.stamp(nil, &m.UpdatedAt)
		d.members[userID] = m
		balance = m.FineBalance
		return nil
	})
	return balance, err
}

func (r memberRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.s.do(func(d *state) error {
		m, ok := d.members[userID]
		if !ok {
			return repository.ErrNotFound
		}
		m.Active = active
		r.s.stamp(nil, &m.UpdatedAt)
		d.members[userID] = m
		return nil
	})
}

type refreshTokenRepo struct{ s *Store }

func (r refreshTokenRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	return r.s.do(func(d *state) error {
		for _, t := range d.refreshTokens {
			if t.Token == rt.Token {
				return repository.ErrDuplicate
			}
		}
		if rt.ID == "" {
			rt.ID = uuid.New().String()
		}
		r.s.stamp(&rt.CreatedAt, nil)
		d.refreshTokens[rt.ID] = *rt
		return nil
	})
}

func (r refreshTokenRepo) FindByToken(ctx context.Context, tokenString string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.s.do(func(d *state) error {
		for _, t := range d.refreshTokens {
			if t.Token == tokenString {
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r refreshTokenRepo) Revoke(ctx context.Context, tokenID string) error {
	return r.s.do(func(d *state) error {
		t, ok := d.refreshTokens[tokenID]
		if !ok {
			return nil
		}
		t.Revoked = true
		d.refreshTokens[tokenID] = t
		return nil
	})
}

func (r refreshTokenRepo) Delete(ctx context.Context, tokenID string) error {
	return r.s.do(func(d *state) error {
		delete(d.refreshTokens, tokenID)
		return nil
	})
}
