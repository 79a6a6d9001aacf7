package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libraryhub/internal/microservices/http-api/dto"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

type BookHandler struct {
	catalog service.CatalogService
}

func NewBookHandler(catalog service.CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	write := middleware.RequirePermission(models.PermManageCatalog)
	rg.GET("/books", h.List)
	rg.GET("/books/:id", h.Get)
	rg.GET("/books/:id/availability", h.Availability)
	rg.POST("/books", write, h.Create)
	rg.POST("/books/:id/copies", write, h.AddCopy)
	rg.PUT("/copies/:id/status", write, h.SetCopyStatus)
}

// List returns one page of the catalog, or search results when q is set.
func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if q := c.Query("q"); q != "" {
		books, err := h.catalog.SearchBooks(ctx, q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.BookListResponse{Books: books, Page: 1, PageSize: len(books), Total: int64(len(books))})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	books, total, err := h.catalog.ListBooks(ctx, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookListResponse{Books: books, Page: page, PageSize: pageSize, Total: total})
}

func (h *BookHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.catalog.GetBook(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	copies, err := h.catalog.ListCopies(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	avail, err := h.catalog.Availability(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookDetailResponse{
		Book:      book,
		Copies:    copies,
		Available: avail.Available,
		Waiting:   avail.Waiting,
	})
}

func (h *BookHandler) Availability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	avail, err := h.catalog.Availability(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *BookHandler) Create(c *gin.Context) {
	var req dto.CreateBookRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := h.catalog.CreateBook(ctx, req.ToModel())
	if err != nil {
		writeError(c, err)
		return
	}
	copies := make([]models.BookCopy, 0, req.Copies)
	for i := 0; i < req.Copies; i++ {
		bc, err := h.catalog.AddCopy(ctx, book.ID, &models.BookCopy{})
		if err != nil {
			writeError(c, err)
			return
		}
		copies = append(copies, *bc)
	}
	c.JSON(http.StatusCreated, dto.BookDetailResponse{Book: book, Copies: copies, Available: len(copies)})
}

func (h *BookHandler) AddCopy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddCopyRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bc, err := h.catalog.AddCopy(ctx, id, req.ToModel())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bc)
}

func (h *BookHandler) SetCopyStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SetCopyStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bc, err := h.catalog.SetCopyStatus(ctx, id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bc)
}
