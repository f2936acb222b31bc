// Package memory provides in-process implementations of the repository
// interfaces. They back the unit tests and the USE_MEMORY_STORE development
// mode, so the server can run without a PostgreSQL instance.
//
// Each store serializes access with its own mutex; the book store's
// reserve/release are compare-and-mutate operations under that lock, matching
// the conditional UPDATE semantics of the gorm implementation. Atomic units
// run one at a time under a store-wide mutex (see TxRunner), which stands in
// for the row locking a real transaction would give the policy checks. There
// is still no rollback here, which is exactly the situation the borrowing
// engine's compensation path exists for.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/repositories"
)

// Store bundles the in-memory repositories over shared state.
type Store struct {
	unitMu sync.Mutex

	booksMu sync.Mutex
	books   map[uuid.UUID]*models.Book

	recordsMu sync.Mutex
	records   map[uuid.UUID]*models.BorrowRecord

	membersMu sync.Mutex
	members   map[uuid.UUID]*models.Member

	genresMu sync.Mutex
	genres   map[uuid.UUID]*models.Genre

	staffMu sync.Mutex
	staff   map[uuid.UUID]*models.Staff
}

func NewStore() *Store {
	return &Store{
		books:   make(map[uuid.UUID]*models.Book),
		records: make(map[uuid.UUID]*models.BorrowRecord),
		members: make(map[uuid.UUID]*models.Member),
		genres:  make(map[uuid.UUID]*models.Genre),
		staff:   make(map[uuid.UUID]*models.Staff),
	}
}

func (s *Store) Books() repositories.BookRepository                 { return &bookStore{s: s} }
func (s *Store) BorrowRecords() repositories.BorrowRecordRepository { return &recordStore{s: s} }
func (s *Store) Members() repositories.MemberRepository             { return &memberStore{s: s} }
func (s *Store) Genres() repositories.GenreRepository               { return &genreStore{s: s} }
func (s *Store) Staff() repositories.StaffRepository                { return &staffStore{s: s} }

// TxRunner returns the store's atomic-unit runner. There is no transaction to
// open, so the closure runs with a nil handle, serialized by a store-wide
// mutex: read-then-write sequences inside a unit (the duplicate-loan check
// before a reservation, the open-loan count before a copy reconcile) cannot
// interleave with another unit.
func (s *Store) TxRunner() repositories.TxRunner {
	return &txRunner{s: s}
}

type txRunner struct {
	s *Store
}

func (r *txRunner) RunInTx(fn func(tx *gorm.DB) error) error {
	r.s.unitMu.Lock()
	defer r.s.unitMu.Unlock()
	return fn(nil)
}

// book store

type bookStore struct {
	s *Store
}

func (b *bookStore) Create(_ *gorm.DB, book *models.Book) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	stored := *book
	b.s.books[book.ID] = &stored
	return nil
}

func (b *bookStore) List(_ *gorm.DB) ([]models.Book, error) {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	out := make([]models.Book, 0, len(b.s.books))
	for _, bk := range b.s.books {
		out = append(out, *bk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (b *bookStore) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Book, error) {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	bk, ok := b.s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *bk
	return &cp, nil
}

func (b *bookStore) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	return b.GetByID(db, id)
}

func (b *bookStore) Update(_ *gorm.DB, book *models.Book) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	bk, ok := b.s.books[book.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	bk.Title = book.Title
	bk.Author = book.Author
	bk.PublishedYear = book.PublishedYear
	bk.GenreID = book.GenreID
	return nil
}

func (b *bookStore) Delete(_ *gorm.DB, id uuid.UUID) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	delete(b.s.books, id)
	return nil
}

func (b *bookStore) ReserveCopy(_ *gorm.DB, bookID uuid.UUID) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	bk, ok := b.s.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if bk.AvailableCopies <= 0 {
		return repositories.ErrNoAvailableCopies
	}
	bk.AvailableCopies--
	return nil
}

func (b *bookStore) ReleaseCopy(_ *gorm.DB, bookID uuid.UUID) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	bk, ok := b.s.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if bk.AvailableCopies >= bk.TotalCopies {
		return repositories.ErrOverRelease
	}
	bk.AvailableCopies++
	return nil
}

func (b *bookStore) SetCopyCounts(_ *gorm.DB, bookID uuid.UUID, total, available int) error {
	b.s.booksMu.Lock()
	defer b.s.booksMu.Unlock()
	bk, ok := b.s.books[bookID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	bk.TotalCopies = total
	bk.AvailableCopies = available
	return nil
}

// borrow record store

type recordStore struct {
	s *Store
}

func (r *recordStore) Create(_ *gorm.DB, record *models.BorrowRecord) error {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	stored := *record
	r.s.records[record.ID] = &stored
	return nil
}

func (r *recordStore) GetByID(_ *gorm.DB, id uuid.UUID) (*models.BorrowRecord, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	rec, ok := r.s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *recordStore) MarkReturned(_ *gorm.DB, recordID uuid.UUID, returnedAt time.Time) error {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	rec, ok := r.s.records[recordID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if rec.ReturnDate != nil {
		return repositories.ErrAlreadyReturned
	}
	t := returnedAt
	rec.ReturnDate = &t
	return nil
}

func (r *recordStore) FindOpenByMemberAndBook(_ *gorm.DB, memberID, bookID uuid.UUID) (*models.BorrowRecord, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	var oldest *models.BorrowRecord
	for _, rec := range r.s.records {
		if rec.MemberID != memberID || rec.BookID != bookID || rec.ReturnDate != nil {
			continue
		}
		if oldest == nil || rec.BorrowDate.Before(oldest.BorrowDate) {
			oldest = rec
		}
	}
	if oldest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (r *recordStore) CountOpenByMember(_ *gorm.DB, memberID uuid.UUID) (int64, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	var count int64
	for _, rec := range r.s.records {
		if rec.MemberID == memberID && rec.ReturnDate == nil {
			count++
		}
	}
	return count, nil
}

func (r *recordStore) CountOpenByBook(_ *gorm.DB, bookID uuid.UUID) (int64, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	var count int64
	for _, rec := range r.s.records {
		if rec.BookID == bookID && rec.ReturnDate == nil {
			count++
		}
	}
	return count, nil
}

func (r *recordStore) ListByMember(_ *gorm.DB, memberID uuid.UUID) ([]models.BorrowRecord, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	var out []models.BorrowRecord
	for _, rec := range r.s.records {
		if rec.MemberID == memberID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BorrowDate.After(out[j].BorrowDate) })
	return out, nil
}

func (r *recordStore) ListOverdue(_ *gorm.DB, asOf time.Time) ([]models.BorrowRecord, error) {
	r.s.recordsMu.Lock()
	defer r.s.recordsMu.Unlock()
	var out []models.BorrowRecord
	for _, rec := range r.s.records {
		if rec.ReturnDate == nil && rec.DueDate.Before(asOf) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// member store

type memberStore struct {
	s *Store
}

func (m *memberStore) Create(_ *gorm.DB, member *models.Member) error {
	m.s.membersMu.Lock()
	defer m.s.membersMu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	stored := *member
	m.s.members[member.ID] = &stored
	return nil
}

func (m *memberStore) List(_ *gorm.DB) ([]models.Member, error) {
	m.s.membersMu.Lock()
	defer m.s.membersMu.Unlock()
	out := make([]models.Member, 0, len(m.s.members))
	for _, mem := range m.s.members {
		out = append(out, *mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memberStore) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Member, error) {
	m.s.membersMu.Lock()
	defer m.s.membersMu.Unlock()
	mem, ok := m.s.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memberStore) Update(_ *gorm.DB, member *models.Member) error {
	m.s.membersMu.Lock()
	defer m.s.membersMu.Unlock()
	mem, ok := m.s.members[member.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	*mem = *member
	return nil
}

func (m *memberStore) Delete(_ *gorm.DB, id uuid.UUID) error {
	m.s.membersMu.Lock()
	defer m.s.membersMu.Unlock()
	delete(m.s.members, id)
	return nil
}

// genre store

type genreStore struct {
	s *Store
}

func (g *genreStore) Create(_ *gorm.DB, genre *models.Genre) error {
	g.s.genresMu.Lock()
	defer g.s.genresMu.Unlock()
	if genre.ID == uuid.Nil {
		genre.ID = uuid.New()
	}
	stored := *genre
	g.s.genres[genre.ID] = &stored
	return nil
}

func (g *genreStore) List(_ *gorm.DB) ([]models.Genre, error) {
	g.s.genresMu.Lock()
	defer g.s.genresMu.Unlock()
	out := make([]models.Genre, 0, len(g.s.genres))
	for _, gen := range g.s.genres {
		out = append(out, *gen)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *genreStore) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Genre, error) {
	g.s.genresMu.Lock()
	defer g.s.genresMu.Unlock()
	gen, ok := g.s.genres[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *gen
	return &cp, nil
}

func (g *genreStore) GetByName(_ *gorm.DB, name string) (*models.Genre, error) {
	g.s.genresMu.Lock()
	defer g.s.genresMu.Unlock()
	for _, gen := range g.s.genres {
		if gen.Name == name {
			cp := *gen
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (g *genreStore) Delete(_ *gorm.DB, id uuid.UUID) error {
	g.s.genresMu.Lock()
	defer g.s.genresMu.Unlock()
	delete(g.s.genres, id)
	return nil
}

// staff store

type staffStore struct {
	s *Store
}

func (st *staffStore) Create(_ *gorm.DB, staff *models.Staff) error {
	st.s.staffMu.Lock()
	defer st.s.staffMu.Unlock()
	if staff.ID == uuid.Nil {
		staff.ID = uuid.New()
	}
	stored := *staff
	st.s.staff[staff.ID] = &stored
	return nil
}

func (st *staffStore) GetByUsername(_ *gorm.DB, username string) (*models.Staff, error) {
	st.s.staffMu.Lock()
	defer st.s.staffMu.Unlock()
	for _, sf := range st.s.staff {
		if sf.Username == username {
			cp := *sf
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (st *staffStore) List(_ *gorm.DB) ([]models.Staff, error) {
	st.s.staffMu.Lock()
	defer st.s.staffMu.Unlock()
	out := make([]models.Staff, 0, len(st.s.staff))
	for _, sf := range st.s.staff {
		out = append(out, *sf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
