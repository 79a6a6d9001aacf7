package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
	"libraryhub/internal/notify"
)

// --- MOCK SERVICES ---

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Checkout(ctx context.Context, bookID int64, memberID string) (*models.Loan, error) {
	args := m.Called(ctx, bookID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) Return(ctx context.Context, loanID int64) (*service.ReturnResult, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReturnResult), args.Error(1)
}

func (m *MockLoanService) Renew(ctx context.Context, loanID int64) (*models.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) ProcessOverdue(ctx context.Context) (*service.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepReport), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, loanID int64) (*models.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) MemberLoans(ctx context.Context, memberID string, activeOnly bool) ([]models.Loan, error) {
	args := m.Called(ctx, memberID, activeOnly)
	return args.Get(0).([]models.Loan), args.Error(1)
}

func (m *MockLoanService) History(ctx context.Context, memberID string) ([]models.LoanHistory, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]models.LoanHistory), args.Error(1)
}

func (m *MockLoanService) OverdueLoans(ctx context.Context) ([]models.Loan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Loan), args.Error(1)
}

type MockFineService struct {
	mock.Mock
}

func (m *MockFineService) CalculateOverdueFine(loan *models.Loan, today time.Time) (*models.Fine, bool) {
	args := m.Called(loan, today)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.Fine), args.Bool(1)
}

func (m *MockFineService) Get(ctx context.Context, fineID int64) (*models.Fine, error) {
	args := m.Called(ctx, fineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockFineService) Pay(ctx context.Context, fineID int64, method string) (*service.PaymentResult, error) {
	args := m.Called(ctx, fineID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentResult), args.Error(1)
}

func (m *MockFineService) Waive(ctx context.Context, fineID int64, reason string) (*models.Fine, error) {
	args := m.Called(ctx, fineID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockFineService) Dispute(ctx context.Context, fineID int64, reason string) (*models.Fine, error) {
	args := m.Called(ctx, fineID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockFineService) IssueDamageFine(ctx context.Context, loanID int64, note string) (*models.Fine, error) {
	args := m.Called(ctx, loanID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockFineService) IssueLostItemFine(ctx context.Context, loanID int64) (*models.Fine, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fine), args.Error(1)
}

func (m *MockFineService) MemberFines(ctx context.Context, memberID string) ([]models.Fine, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]models.Fine), args.Error(1)
}

func (m *MockFineService) ListFines(ctx context.Context, status models.FineStatus) ([]models.Fine, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]models.Fine), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) reservation(args mock.Arguments) (*models.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockReservationService) Create(ctx context.Context, memberID string, bookID int64) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, memberID, bookID))
}

func (m *MockReservationService) FulfillOldest(ctx context.Context, bookID int64) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, bookID))
}

func (m *MockReservationService) Cancel(ctx context.Context, reservationID int64, memberID string) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, reservationID, memberID))
}

func (m *MockReservationService) CompletePickup(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, reservationID))
}

func (m *MockReservationService) UpdateStatus(ctx context.Context, reservationID int64, status models.ReservationStatus) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, reservationID, status))
}

func (m *MockReservationService) Get(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	return m.reservation(m.Called(ctx, reservationID))
}

func (m *MockReservationService) MemberReservations(ctx context.Context, memberID string) ([]models.Reservation, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockReservationService) ListByStatus(ctx context.Context, status models.ReservationStatus) ([]models.Reservation, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockReservationService) NotifyReady(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	args := m.Called(ctx, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockCatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockCatalogService) ListBooks(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]models.Book), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogService) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockCatalogService) AddCopy(ctx context.Context, bookID int64, bookCopy *models.BookCopy) (*models.BookCopy, error) {
	args := m.Called(ctx, bookID, bookCopy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookCopy), args.Error(1)
}

func (m *MockCatalogService) ListCopies(ctx context.Context, bookID int64) ([]models.BookCopy, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).([]models.BookCopy), args.Error(1)
}

func (m *MockCatalogService) Availability(ctx context.Context, bookID int64) (*service.Availability, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Availability), args.Error(1)
}

func (m *MockCatalogService) SetCopyStatus(ctx context.Context, copyID int64, status models.CopyStatus) (*models.BookCopy, error) {
	args := m.Called(ctx, copyID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookCopy), args.Error(1)
}

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) Get(ctx context.Context, memberID string) (*models.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberService) List(ctx context.Context) ([]models.Member, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Member), args.Error(1)
}

func (m *MockMemberService) SetActive(ctx context.Context, memberID string, active bool) (*models.Member, error) {
	args := m.Called(ctx, memberID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberService) Transactions(ctx context.Context, memberID string) ([]models.Transaction, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, n service.Notice) {
	m.Called(ctx, n)
}

func (m *MockNotificationService) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*models.User, string, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(2) == nil {
		return "", "", nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*models.User), args.Error(3)
}

func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

// recordingDispatcher keeps every message instead of sending it.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (d *recordingDispatcher) Dispatch(msg notify.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
}

func (d *recordingDispatcher) messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.sent...)
}

// --- SETUP ---

const (
	memberID    = "11111111-1111-1111-1111-111111111111"
	otherMember = "22222222-2222-2222-2222-222222222222"
	staffID     = "33333333-3333-3333-3333-333333333333"
)

// asUser stands in for the JWT middleware.
func asUser(userID string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}

func newEngine(userID string, role models.Role) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, r.Group("/api", asUser(userID, role))
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
