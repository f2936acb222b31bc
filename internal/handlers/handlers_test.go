package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/repositories/memory"
	"github.com/kalebWondimu/library-backend/internal/services"
)

type fixture struct {
	router *gin.Engine
	store  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	tx := store.TxRunner()
	logger := zap.NewNop()

	books := store.Books()
	members := store.Members()
	genres := store.Genres()
	records := store.BorrowRecords()

	policy := services.NewPolicyGuard(records, 0)
	borrowing := services.NewBorrowingService(tx, books, members, records, policy, logger, 14)
	catalog := services.NewCatalogService(tx, books, genres, records, logger)
	memberSvc := services.NewMemberService(tx, members, records, policy, logger)
	queries := services.NewQueryService(members, records)

	router := gin.New()
	RegisterRoutes(router, catalog, memberSvc, borrowing, queries, logger)

	return &fixture{router: router, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedBook(t *testing.T, copies int) uuid.UUID {
	t.Helper()
	book := &models.Book{
		Title:           "The Hobbit",
		Author:          "J.R.R. Tolkien",
		PublishedYear:   1937,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, f.store.Books().Create(nil, book))
	return book.ID
}

func (f *fixture) seedMember(t *testing.T, email string) uuid.UUID {
	t.Helper()
	member := &models.Member{
		Name:     "John Doe",
		Email:    email,
		JoinDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.Members().Create(nil, member))
	return member.ID
}

func TestCheckoutEndpoint(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 1)
	memberID := f.seedMember(t, "john.doe@example.com")

	rec := f.do(t, http.MethodPost, "/borrows/checkout", gin.H{
		"member_id": memberID.String(),
		"book_id":   bookID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var record models.BorrowRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, memberID, record.MemberID)
	assert.Nil(t, record.ReturnDate)
	assert.Equal(t, record.BorrowDate.AddDate(0, 0, 14), record.DueDate)

	// All copies out: the next member is rejected with a conflict.
	other := f.seedMember(t, "jane.smith@example.com")
	rec = f.do(t, http.MethodPost, "/borrows/checkout", gin.H{
		"member_id": other.String(),
		"book_id":   bookID.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutValidationAndNotFound(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 1)

	rec := f.do(t, http.MethodPost, "/borrows/checkout", gin.H{
		"member_id": "not-a-uuid",
		"book_id":   bookID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/borrows/checkout", gin.H{
		"member_id": uuid.NewString(),
		"book_id":   bookID.String(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReturnEndpointIdempotency(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 1)
	memberID := f.seedMember(t, "john.doe@example.com")

	body := gin.H{"member_id": memberID.String(), "book_id": bookID.String()}

	rec := f.do(t, http.MethodPost, "/borrows/checkout", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/borrows/return", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.BorrowRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.NotNil(t, record.ReturnDate)

	// Second return reports the conflict without changing state.
	rec = f.do(t, http.MethodPost, "/borrows/return", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMemberDeletionGuardEndpoint(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 1)
	memberID := f.seedMember(t, "john.doe@example.com")

	body := gin.H{"member_id": memberID.String(), "book_id": bookID.String()}
	rec := f.do(t, http.MethodPost, "/borrows/checkout", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/members/%s", memberID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/borrows/return", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/members/%s", memberID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetCopiesEndpoint(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 2)
	memberID := f.seedMember(t, "john.doe@example.com")

	rec := f.do(t, http.MethodPost, "/borrows/checkout", gin.H{
		"member_id": memberID.String(),
		"book_id":   bookID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/books/%s/copies", bookID), gin.H{"total_copies": 0})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/books/%s/copies", bookID), gin.H{"total_copies": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, 4, book.TotalCopies)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestBookAndMemberCRUDEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/books", gin.H{
		"title":          "A Brief History of Time",
		"author":         "Stephen Hawking",
		"published_year": 1988,
		"total_copies":   1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/books", gin.H{"title": "missing fields"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/members", gin.H{
		"name":      "Jane Smith",
		"email":     "jane.smith@example.com",
		"phone":     "555-0102",
		"join_date": "2023-02-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/members", gin.H{
		"name":      "Bad Date",
		"email":     "bad@example.com",
		"join_date": "20-02-2023",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/books", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemberHistoryEndpoints(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 2)
	memberID := f.seedMember(t, "john.doe@example.com")

	body := gin.H{"member_id": memberID.String(), "book_id": bookID.String()}
	rec := f.do(t, http.MethodPost, "/borrows/checkout", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/members/%s/borrows/active", memberID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active struct {
		ActiveBorrows int64 `json:"active_borrows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.EqualValues(t, 1, active.ActiveBorrows)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/members/%s/borrows", memberID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.BorrowRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/members/%s/borrows", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOverdueEndpoint(t *testing.T) {
	f := newFixture(t)
	bookID := f.seedBook(t, 1)
	memberID := f.seedMember(t, "john.doe@example.com")

	// Seed an already-overdue loan directly; the API only creates future due
	// dates.
	borrowed := time.Now().UTC().AddDate(0, 0, -20)
	require.NoError(t, f.store.BorrowRecords().Create(nil, &models.BorrowRecord{
		MemberID:   memberID,
		BookID:     bookID,
		BorrowDate: borrowed,
		DueDate:    borrowed.AddDate(0, 0, 14),
	}))

	rec := f.do(t, http.MethodGet, "/borrows/overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var overdue []struct {
		models.BorrowRecord
		DaysOverdue int `json:"days_overdue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overdue))
	require.Len(t, overdue, 1)
	assert.Equal(t, bookID, overdue[0].BookID)
	assert.GreaterOrEqual(t, overdue[0].DaysOverdue, 5)
}
