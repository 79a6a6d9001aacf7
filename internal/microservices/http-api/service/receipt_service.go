package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"libraryhub/internal/microservices/http-api/models"
)

type ReceiptItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Receipt struct {
	Number   string          `json:"number"`
	Kind     string          `json:"kind"`
	MemberID string          `json:"member_id"`
	IssuedAt time.Time       `json:"issued_at"`
	Items    []ReceiptItem   `json:"items"`
	Total    decimal.Decimal `json:"total"`
}

// Text renders the receipt as plain text, one item per line.
func (r *Receipt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt %s (%s)\n", r.Number, r.Kind)
	fmt.Fprintf(&b, "Member: %s\n", r.MemberID)
	fmt.Fprintf(&b, "Date:   %s\n", r.IssuedAt.Format("2006-01-02 15:04"))
	for _, it := range r.Items {
		fmt.Fprintf(&b, "  %-40s %8s\n", it.Description, it.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "  %-40s %8s\n", "TOTAL", r.Total.StringFixed(2))
	return b.String()
}

type ReceiptService interface {
	ForReturn(loan *models.Loan, book *models.Book, fine *models.Fine) *Receipt
	ForPayment(fine *models.Fine, tx *models.Transaction) *Receipt
}

type receiptService struct {
	clock Clock
}

func NewReceiptService(clock Clock) ReceiptService {
	return &receiptService{clock: clock}
}

func (s *receiptService) ForReturn(loan *models.Loan, book *models.Book, fine *models.Fine) *Receipt {
	issued := s.clock.now()
	title := fmt.Sprintf("book #%d", loan.BookID)
	if book != nil {
		title = book.Title
	}
	r := &Receipt{
		Number:   fmt.Sprintf("RET-%d-%s", loan.ID, issued.Format("20060102")),
		Kind:     "RETURN",
		MemberID: loan.MemberID,
		IssuedAt: issued,
		Items: []ReceiptItem{
			{Description: "Returned: " + title, Amount: decimal.Zero},
		},
		Total: decimal.Zero,
	}
	if fine != nil {
		desc := "Late fee (due " + fine.DueDate.Format(dateLayout) + ")"
		if fine.Status != models.FinePending {
			desc = "Late fee (" + string(fine.Status) + ")"
		}
		r.Items = append(r.Items, ReceiptItem{Description: desc, Amount: fine.Amount})
		if fine.Status.Outstanding() {
			r.Total = fine.Amount
		}
	}
	return r
}

func (s *receiptService) ForPayment(fine *models.Fine, tx *models.Transaction) *Receipt {
	return &Receipt{
		Number:   fmt.Sprintf("PAY-%d", tx.ID),
		Kind:     "PAYMENT",
		MemberID: fine.MemberID,
		IssuedAt: tx.Date,
		Items: []ReceiptItem{
			{Description: fmt.Sprintf("Fine #%d (%s) paid by %s", fine.ID, fine.Reason, tx.PaymentMethod), Amount: tx.Amount},
		},
		Total: tx.Amount,
	}
}
