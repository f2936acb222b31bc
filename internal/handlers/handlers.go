package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/services"
)

type LibraryHandler struct {
	catalog   services.CatalogService
	members   services.MemberService
	borrowing services.BorrowingService
	queries   services.QueryService
	logger    *zap.Logger
}

func RegisterRoutes(
	r *gin.Engine,
	catalog services.CatalogService,
	members services.MemberService,
	borrowing services.BorrowingService,
	queries services.QueryService,
	logger *zap.Logger,
) {
	h := &LibraryHandler{
		catalog:   catalog,
		members:   members,
		borrowing: borrowing,
		queries:   queries,
		logger:    logger,
	}

	// Catalog endpoints
	r.POST("/books", h.createBook)
	r.GET("/books", h.listBooks)
	r.GET("/books/:id", h.getBook)
	r.PUT("/books/:id", h.updateBook)
	r.DELETE("/books/:id", h.deleteBook)
	r.PATCH("/books/:id/copies", h.setTotalCopies)

	r.POST("/genres", h.createGenre)
	r.GET("/genres", h.listGenres)
	r.DELETE("/genres/:id", h.deleteGenre)

	// Member endpoints
	r.POST("/members", h.createMember)
	r.GET("/members", h.listMembers)
	r.GET("/members/:id", h.getMember)
	r.PUT("/members/:id", h.updateMember)
	r.DELETE("/members/:id", h.deleteMember)
	r.GET("/members/:id/borrows", h.memberHistory)
	r.GET("/members/:id/borrows/active", h.memberActiveCount)

	// Borrowing endpoints
	r.POST("/borrows/checkout", h.checkout)
	r.POST("/borrows/return", h.returnBook)
	r.GET("/borrows/overdue", h.listOverdue)
}

// writeError maps domain errors onto HTTP statuses: unknown entities are 404,
// business-rule rejections and idempotency signals are 409, invariant
// violations are 500 and logged as such.
func (h *LibraryHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrGenreNotFound),
		errors.Is(err, services.ErrBorrowRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBookUnavailable),
		errors.Is(err, services.ErrDuplicateActiveLoan),
		errors.Is(err, services.ErrBorrowLimitExceeded),
		errors.Is(err, services.ErrNoActiveLoan),
		errors.Is(err, services.ErrAlreadyReturned),
		errors.Is(err, services.ErrInvalidCopyCount),
		errors.Is(err, services.ErrMemberHasActiveLoans),
		errors.Is(err, services.ErrBookHasActiveLoans):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInventoryInconsistency):
		h.logger.Error("invariant violation surfaced to handler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal inventory inconsistency"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

type bookRequest struct {
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author" binding:"required"`
	PublishedYear int     `json:"published_year" binding:"required"`
	GenreID       *string `json:"genre_id"`
	TotalCopies   int     `json:"total_copies" binding:"min=0"`
}

func (r *bookRequest) genreUUID(c *gin.Context) (*uuid.UUID, bool) {
	if r.GenreID == nil {
		return nil, true
	}
	id, err := uuid.Parse(*r.GenreID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid genre id"})
		return nil, false
	}
	return &id, true
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	genreID, ok := req.genreUUID(c)
	if !ok {
		return
	}

	book, err := h.catalog.CreateBook(req.Title, req.Author, req.PublishedYear, genreID, req.TotalCopies)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.catalog.ListBooks()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	book, err := h.catalog.GetBook(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	genreID, ok := req.genreUUID(c)
	if !ok {
		return
	}

	book, err := h.catalog.UpdateBook(id, req.Title, req.Author, req.PublishedYear, genreID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setCopiesRequest struct {
	TotalCopies *int `json:"total_copies" binding:"required"`
}

func (h *LibraryHandler) setTotalCopies(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req setCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.catalog.SetTotalCopies(id, *req.TotalCopies)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

type genreRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *LibraryHandler) createGenre(c *gin.Context) {
	var req genreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	genre, err := h.catalog.CreateGenre(req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, genre)
}

func (h *LibraryHandler) listGenres(c *gin.Context) {
	genres, err := h.catalog.ListGenres()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}

func (h *LibraryHandler) deleteGenre(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteGenre(id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Members ──────────────────────────────────────────────────────────────────

type memberRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	JoinDate string `json:"join_date" binding:"required"`
}

func (r *memberRequest) joinTime(c *gin.Context) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", r.JoinDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "join_date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}

func (h *LibraryHandler) createMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	joined, ok := req.joinTime(c)
	if !ok {
		return
	}

	member, err := h.members.CreateMember(req.Name, req.Email, req.Phone, joined)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *LibraryHandler) listMembers(c *gin.Context) {
	members, err := h.members.ListMembers()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *LibraryHandler) getMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	member, err := h.members.GetMember(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *LibraryHandler) updateMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	joined, ok := req.joinTime(c)
	if !ok {
		return
	}

	member, err := h.members.UpdateMember(id, req.Name, req.Email, req.Phone, joined)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *LibraryHandler) deleteMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.members.DeleteMember(id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) memberHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.queries.History(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *LibraryHandler) memberActiveCount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	count, err := h.queries.ActiveBorrowCount(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_id": id, "active_borrows": count})
}

// ─── Borrowing ────────────────────────────────────────────────────────────────

type borrowRequest struct {
	MemberID string `json:"member_id" binding:"required,uuid"`
	BookID   string `json:"book_id" binding:"required,uuid"`
}

func (r *borrowRequest) ids(c *gin.Context) (memberID, bookID uuid.UUID, ok bool) {
	memberID, err := uuid.Parse(r.MemberID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return uuid.Nil, uuid.Nil, false
	}
	bookID, err = uuid.Parse(r.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return uuid.Nil, uuid.Nil, false
	}
	return memberID, bookID, true
}

func (h *LibraryHandler) checkout(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, bookID, ok := req.ids(c)
	if !ok {
		return
	}

	record, err := h.borrowing.Checkout(memberID, bookID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, bookID, ok := req.ids(c)
	if !ok {
		return
	}

	record, err := h.borrowing.Return(memberID, bookID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type overdueLoan struct {
	models.BorrowRecord
	DaysOverdue int `json:"days_overdue"`
}

func (h *LibraryHandler) listOverdue(c *gin.Context) {
	now := time.Now().UTC()
	records, err := h.queries.ListOverdue(now)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]overdueLoan, 0, len(records))
	for i := range records {
		out = append(out, overdueLoan{
			BorrowRecord: records[i],
			DaysOverdue:  services.DaysOverdue(&records[i], now),
		})
	}
	c.JSON(http.StatusOK, out)
}
