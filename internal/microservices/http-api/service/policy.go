package service

import (
	"time"

	"github.com/shopspring/decimal"

	"libraryhub/internal/config"
)

// LoanPolicy holds the circulation rules shared by the loan, fine and
// reservation services.
type LoanPolicy struct {
	LoanPeriodDays int
	MaxActiveLoans int
	MaxRenewals    int
	DailyFineRate  decimal.Decimal
	// MaxOverdueFine caps a single overdue fine. Zero means uncapped.
	MaxOverdueFine decimal.Decimal
	// FineGraceDays is the time a member has to pay a fine.
	FineGraceDays int
	DamageFine    decimal.Decimal
	LostItemFine  decimal.Decimal
}

func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		LoanPeriodDays: 14,
		MaxActiveLoans: 5,
		MaxRenewals:    2,
		DailyFineRate:  decimal.RequireFromString("0.50"),
		MaxOverdueFine: decimal.Zero,
		FineGraceDays:  14,
		DamageFine:     decimal.RequireFromString("10.00"),
		LostItemFine:   decimal.RequireFromString("25.00"),
	}
}

func PolicyFromConfig(cfg *config.Config) LoanPolicy {
	return LoanPolicy{
		LoanPeriodDays: cfg.LoanPeriodDays,
		MaxActiveLoans: cfg.MaxActiveLoans,
		MaxRenewals:    cfg.MaxRenewals,
		DailyFineRate:  cfg.DailyFineRate,
		MaxOverdueFine: cfg.MaxOverdueFine,
		FineGraceDays:  cfg.FineGraceDays,
		DamageFine:     cfg.DamageFine,
		LostItemFine:   cfg.LostItemFine,
	}
}

// Clock returns the current time. Services fall back to time.Now when nil.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// today is the current calendar date at midnight in the clock's location.
func (c Clock) today() time.Time {
	return dateOf(c.now())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b; negative when b is
// before a. DST shifts do not change the count.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
