package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-builder/internal/domain"
	"cv-builder/internal/preview"
)

type fakeRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*domain.SavedCV
	fetches int
	upserts int
	// when set, FetchOne blocks until the channel is closed
	fetchGate chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*domain.SavedCV{}}
}

func (r *fakeRepo) Upsert(ctx context.Context, cv *domain.SavedCV) (*domain.SavedCV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, row := range r.rows {
		if row.UserID == cv.UserID && row.Title == cv.Title {
			row.Data = cv.Data
			out := *row
			return &out, nil
		}
	}
	row := *cv
	row.ID = uuid.New()
	r.rows[row.ID] = &row
	out := row
	return &out, nil
}

func (r *fakeRepo) FetchOne(ctx context.Context, id, ownerID uuid.UUID) (*domain.SavedCV, error) {
	r.mu.Lock()
	gate := r.fetchGate
	r.fetches++
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	out := *row
	return &out, nil
}

func (r *fakeRepo) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

func (r *fakeRepo) put(t *testing.T, userID uuid.UUID, firstName string) uuid.UUID {
	t.Helper()
	doc := domain.NewDocument()
	doc.PersonalInfo.FirstName = firstName
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	id := uuid.New()
	r.mu.Lock()
	r.rows[id] = &domain.SavedCV{ID: id, UserID: userID, Title: doc.DerivedTitle(), Data: data}
	r.mu.Unlock()
	return id
}

type fakeGate struct {
	mu      sync.Mutex
	allowed bool
	err     error
}

func (g *fakeGate) Check(ctx context.Context, userID uuid.UUID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allowed, g.err
}

func (g *fakeGate) allow() {
	g.mu.Lock()
	g.allowed = true
	g.err = nil
	g.mu.Unlock()
}

type fakeExporter struct {
	pdf []byte
	err error
}

func (e *fakeExporter) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	return e.pdf, e.err
}

func newTestSession(repo Repo, gate Gate, exporter Exporter) *Session {
	return NewSession(repo, gate, exporter, preview.NewRenderer(), zerolog.Nop())
}

func signedIn(s *Session) *Identity {
	user := &Identity{ID: uuid.New(), Email: "anna@example.se"}
	s.SetIdentity(user)
	return user
}

func TestMoveSectionBoundaries(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})
	before := s.Layout().AddedSections

	s.MoveSection(0, "up")
	assert.Equal(t, before, s.Layout().AddedSections)

	s.MoveSection(len(before)-1, "down")
	assert.Equal(t, before, s.Layout().AddedSections)

	s.MoveSection(1, "sideways")
	assert.Equal(t, before, s.Layout().AddedSections)

	s.MoveSection(1, "down")
	after := s.Layout().AddedSections
	assert.Equal(t, before[1], after[2])
	assert.Equal(t, before[2], after[1])
}

func TestPersonalInfoIsNotRemovable(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})

	s.RemoveSection(domain.SectionPersonalInfo)
	assert.Contains(t, s.Layout().AddedSections, domain.SectionPersonalInfo)

	s.RemoveSection(domain.SectionSkills)
	assert.NotContains(t, s.Layout().AddedSections, domain.SectionSkills)
}

func TestAddSectionDuplicateIsNoOp(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})
	count := len(s.Layout().AddedSections)

	s.AddSection(domain.SectionCourses)
	assert.Len(t, s.Layout().AddedSections, count)

	s.RemoveSection(domain.SectionCourses)
	s.AddSection(domain.SectionCourses)
	s.AddSection(domain.SectionCourses)
	assert.Len(t, s.Layout().AddedSections, count)
}

func TestAddEntityFocusFollowsNewEntry(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})

	idx, err := s.AddEntity("experience")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []int{1}, s.OpenEntryIndexes(domain.SectionExperience))
	assert.Contains(t, s.Layout().OpenSections, domain.SectionExperience)

	idx, err = s.AddEntity("experience")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []int{2}, s.OpenEntryIndexes(domain.SectionExperience))
}

func TestStyleSettersValidate(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})

	s.SetTemplate("lyxig")
	assert.Equal(t, "lyxig", s.Layout().Template)
	s.SetTemplate("nope")
	assert.Equal(t, "lyxig", s.Layout().Template)

	s.SetFont("Georgia")
	assert.Equal(t, "Georgia", s.Layout().Font)
	s.SetFont("Wingdings")
	assert.Equal(t, "Georgia", s.Layout().Font)

	s.SetFontSize("XL")
	assert.Equal(t, "20px", s.Layout().FontSizePx)
	s.SetFontSize("XXL")
	assert.Equal(t, "M", s.Layout().FontSize)
	assert.Equal(t, "16px", s.Layout().FontSizePx)

	s.SetColor("#336699")
	assert.Equal(t, "#336699", s.Layout().TextColor)
	assert.Equal(t, "#336699", s.Layout().HeaderColor)
}

func TestSaveRequiresSignIn(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})

	err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, ActionSave, s.PendingAction())
}

func TestSaveRequiresEntitlement(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{}, &fakeExporter{})
	signedIn(s)

	err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotEntitled)
	assert.Equal(t, ActionSave, s.PendingAction())
}

func TestEntitlementFailsClosed(t *testing.T) {
	gate := &fakeGate{allowed: true, err: errors.New("gate down")}
	s := newTestSession(newFakeRepo(), gate, &fakeExporter{})
	signedIn(s)

	err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotEntitled)
}

func TestSaveUpsertsUnderDerivedTitle(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	signedIn(s)

	require.NoError(t, s.SetValue("personalInfo.firstName", "Anna"))
	require.NoError(t, s.SetValue("personalInfo.lastName", "Svensson"))

	require.NoError(t, s.Save(context.Background()))
	firstID := s.LastSavedID()
	require.NotEqual(t, uuid.Nil, firstID)

	require.NoError(t, s.SetValue("experience.0.title", "Engineer"))
	require.NoError(t, s.Save(context.Background()))

	// same derived title: overwritten, not duplicated
	assert.Equal(t, firstID, s.LastSavedID())
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, "Anna Svensson's CV", repo.rows[firstID].Title)
}

func TestLoadScopedToOwner(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	signedIn(s)

	foreign := repo.put(t, uuid.New(), "Erik")

	err := s.LoadForEdit(context.Background(), foreign)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	state, _ := s.LoadStatus()
	assert.Equal(t, LoadFailed, state)
}

func TestLoadForEdit(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	user := signedIn(s)

	id := repo.put(t, user.ID, "Anna")

	require.NoError(t, s.LoadForEdit(context.Background(), id))
	state, loadedID := s.LoadStatus()
	assert.Equal(t, LoadLoaded, state)
	assert.Equal(t, id, loadedID)
	assert.Equal(t, "Anna", s.Snapshot().PersonalInfo.FirstName)

	// reloading the loaded id does not refetch
	fetches := repo.fetchCount()
	require.NoError(t, s.LoadForEdit(context.Background(), id))
	assert.Equal(t, fetches, repo.fetchCount())
}

func TestLoadRequiresSignIn(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})
	err := s.LoadForEdit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestOverlappingLoadIsSuppressed(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	user := signedIn(s)
	id := repo.put(t, user.ID, "Anna")

	gate := make(chan struct{})
	repo.fetchGate = gate

	done := make(chan error, 1)
	go func() { done <- s.LoadForEdit(context.Background(), id) }()

	// wait for the first load to enter the loading state
	require.Eventually(t, func() bool {
		state, _ := s.LoadStatus()
		return state == LoadLoading
	}, time.Second, time.Millisecond)

	// a second load while one is in flight returns without fetching
	require.NoError(t, s.LoadForEdit(context.Background(), id))
	assert.Equal(t, 1, repo.fetchCount())

	close(gate)
	require.NoError(t, <-done)
}

func TestEditDuringLoadWins(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	user := signedIn(s)
	id := repo.put(t, user.ID, "Anna")

	gate := make(chan struct{})
	repo.fetchGate = gate

	done := make(chan error, 1)
	go func() { done <- s.LoadForEdit(context.Background(), id) }()

	require.Eventually(t, func() bool {
		state, _ := s.LoadStatus()
		return state == LoadLoading
	}, time.Second, time.Millisecond)

	require.NoError(t, s.SetValue("personalInfo.firstName", "Erik"))
	close(gate)

	assert.ErrorIs(t, <-done, ErrLoadSuperseded)
	// the user's edit survives, the fetched document is discarded
	assert.Equal(t, "Erik", s.Snapshot().PersonalInfo.FirstName)
	state, _ := s.LoadStatus()
	assert.Equal(t, LoadFailed, state)
}

func TestEditMidNotificationStillSupersedesLoad(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	user := signedIn(s)
	id := repo.put(t, user.ID, "Anna")

	fetchGate := make(chan struct{})
	repo.fetchGate = fetchGate

	done := make(chan error, 1)
	go func() { done <- s.LoadForEdit(context.Background(), id) }()

	require.Eventually(t, func() bool {
		state, _ := s.LoadStatus()
		return state == LoadLoading
	}, time.Second, time.Millisecond)

	// stall the edit in its watcher callback: the write and the version bump
	// have been applied, only the observer side is still running
	editing := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	unsub := s.store.Watch(func(*domain.Document) {
		once.Do(func() { close(editing) })
		<-release
	})
	defer unsub()

	editDone := make(chan error, 1)
	go func() { editDone <- s.SetValue("personalInfo.firstName", "Erik") }()
	<-editing

	// the fetch completes while the edit is mid-notification; the fetched
	// document must still be discarded
	close(fetchGate)
	assert.ErrorIs(t, <-done, ErrLoadSuperseded)

	close(release)
	require.NoError(t, <-editDone)
	assert.Equal(t, "Erik", s.Snapshot().PersonalInfo.FirstName)
	state, _ := s.LoadStatus()
	assert.Equal(t, LoadFailed, state)
}

func TestIdentityChangeResetsLoadMachine(t *testing.T) {
	repo := newFakeRepo()
	s := newTestSession(repo, &fakeGate{allowed: true}, &fakeExporter{})
	user := signedIn(s)
	id := repo.put(t, user.ID, "Anna")

	require.NoError(t, s.LoadForEdit(context.Background(), id))

	s.SetIdentity(&Identity{ID: uuid.New()})
	state, loadedID := s.LoadStatus()
	assert.Equal(t, LoadIdle, state)
	assert.Equal(t, uuid.Nil, loadedID)

	// same identity again is a no-op, the machine keeps its state
	state0, _ := s.LoadStatus()
	s.SetIdentity(s.Identity())
	state1, _ := s.LoadStatus()
	assert.Equal(t, state0, state1)
}

func TestExportGuards(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{}, &fakeExporter{pdf: []byte("%PDF")})

	_, err := s.RequestExport(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, ActionExport, s.PendingAction())

	signedIn(s)
	_, err = s.RequestExport(context.Background())
	assert.ErrorIs(t, err, ErrNotEntitled)
}

func TestExportProducesPDF(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{pdf: []byte("%PDF-1.4")})
	signedIn(s)

	pdf, err := s.RequestExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.False(t, s.Exporting())
	assert.Equal(t, ActionNone, s.PendingAction())
}

func TestExportFailureResetsBusyFlag(t *testing.T) {
	exporter := &fakeExporter{err: context.DeadlineExceeded}
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, exporter)
	signedIn(s)

	_, err := s.RequestExport(context.Background())
	assert.Error(t, err)
	assert.False(t, s.Exporting())

	// a later attempt is not blocked by the failed one
	exporter.err = nil
	exporter.pdf = []byte("%PDF")
	_, err = s.RequestExport(context.Background())
	assert.NoError(t, err)
}

func TestPaymentCapturedRetriesPendingExport(t *testing.T) {
	gate := &fakeGate{}
	s := newTestSession(newFakeRepo(), gate, &fakeExporter{pdf: []byte("%PDF")})
	signedIn(s)

	_, err := s.RequestExport(context.Background())
	require.ErrorIs(t, err, ErrNotEntitled)

	gate.allow()
	action, pdf, err := s.PaymentCaptured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionExport, action)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Equal(t, ActionNone, s.PendingAction())
}

func TestPaymentCapturedRetriesPendingSave(t *testing.T) {
	gate := &fakeGate{}
	repo := newFakeRepo()
	s := newTestSession(repo, gate, &fakeExporter{})
	signedIn(s)

	require.ErrorIs(t, s.Save(context.Background()), ErrNotEntitled)

	gate.allow()
	action, _, err := s.PaymentCaptured(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionSave, action)
	assert.Equal(t, 1, repo.upserts)
}

func TestPaymentCapturedWithoutPendingAction(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})
	signedIn(s)

	action, pdf, err := s.PaymentCaptured(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Nil(t, pdf)
}

func TestToggleHiddenKeepsSectionEditable(t *testing.T) {
	s := newTestSession(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{})

	s.ToggleHidden(domain.SectionSkills)
	for _, d := range s.Layout().Sections {
		if d.Kind == domain.SectionSkills {
			assert.True(t, d.Hidden)
		}
	}
	// still present in the form and still writable
	assert.Contains(t, s.Layout().AddedSections, domain.SectionSkills)
	assert.NoError(t, s.SetValue("skills.0.name", "Go"))
}
