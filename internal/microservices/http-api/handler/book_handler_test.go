package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"libraryhub/internal/microservices/http-api/handler"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

func setupBookRouter(role models.Role) (http.Handler, *MockCatalogService) {
	svc := new(MockCatalogService)
	r, api := newEngine(staffID, role)
	handler.NewBookHandler(svc).RegisterRoutes(api)
	return r, svc
}

func TestBookHandler_List(t *testing.T) {
	t.Run("paged", func(t *testing.T) {
		r, svc := setupBookRouter(models.RoleMember)
		svc.On("ListBooks", mock.Anything, 2, 10).Return([]models.Book{{ID: 1, Title: "Dune"}}, int64(11), nil)

		w := doJSON(t, r, http.MethodGet, "/api/books?page=2&page_size=10", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(11), decode(t, w)["total"])
	})

	t.Run("search", func(t *testing.T) {
		r, svc := setupBookRouter(models.RoleMember)
		svc.On("SearchBooks", mock.Anything, "dune").Return([]models.Book{{ID: 1, Title: "Dune"}}, nil)

		w := doJSON(t, r, http.MethodGet, "/api/books?q=dune", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "ListBooks", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookHandler_Get(t *testing.T) {
	r, svc := setupBookRouter(models.RoleMember)
	svc.On("GetBook", mock.Anything, int64(1)).Return(&models.Book{ID: 1, Title: "Dune", ISBN: "9780441013593"}, nil)
	svc.On("ListCopies", mock.Anything, int64(1)).Return([]models.BookCopy{
		{ID: 1, BookID: 1, Status: models.CopyAvailable},
		{ID: 2, BookID: 1, Status: models.CopyCheckedOut},
	}, nil)
	svc.On("Availability", mock.Anything, int64(1)).Return(&service.Availability{BookID: 1, Total: 2, Available: 1, CheckedOut: 1, Waiting: 3}, nil)

	w := doJSON(t, r, http.MethodGet, "/api/books/1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["available"])
	assert.Equal(t, float64(3), body["waiting"])
	assert.Len(t, body["copies"], 2)
}

func TestBookHandler_GetNotFound(t *testing.T) {
	r, svc := setupBookRouter(models.RoleMember)
	svc.On("GetBook", mock.Anything, int64(9)).Return(nil, service.ErrBookNotFound)

	w := doJSON(t, r, http.MethodGet, "/api/books/9", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookHandler_Create(t *testing.T) {
	t.Run("members cannot write the catalog", func(t *testing.T) {
		r, _ := setupBookRouter(models.RoleMember)

		w := doJSON(t, r, http.MethodPost, "/api/books", map[string]any{"title": "Dune", "isbn": "9780441013593"})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("librarian creates with copies", func(t *testing.T) {
		r, svc := setupBookRouter(models.RoleLibrarian)
		svc.On("CreateBook", mock.Anything, mock.AnythingOfType("*models.Book")).Return(&models.Book{ID: 3, Title: "Dune"}, nil)
		svc.On("AddCopy", mock.Anything, int64(3), mock.AnythingOfType("*models.BookCopy")).
			Return(&models.BookCopy{ID: 1, BookID: 3, Status: models.CopyAvailable}, nil).Twice()

		w := doJSON(t, r, http.MethodPost, "/api/books", map[string]any{"title": "Dune", "isbn": "9780441013593", "copies": 2})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, float64(2), decode(t, w)["available"])
		svc.AssertExpectations(t)
	})

	t.Run("invalid isbn", func(t *testing.T) {
		r, svc := setupBookRouter(models.RoleLibrarian)
		svc.On("CreateBook", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidISBN)

		w := doJSON(t, r, http.MethodPost, "/api/books", map[string]any{"title": "Dune", "isbn": "123"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "InvalidISBN", decode(t, w)["code"])
	})
}

func TestBookHandler_SetCopyStatus(t *testing.T) {
	r, svc := setupBookRouter(models.RoleLibrarian)
	svc.On("SetCopyStatus", mock.Anything, int64(4), models.CopyInRepair).
		Return(&models.BookCopy{ID: 4, Status: models.CopyInRepair}, nil)

	w := doJSON(t, r, http.MethodPut, "/api/copies/4/status", map[string]string{"status": "IN_REPAIR"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IN_REPAIR", decode(t, w)["status"])
}
