package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cv-builder/internal/domain"
	"cv-builder/internal/preview"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotSignedIn    = errors.New("no signed-in user")
	ErrNotEntitled    = errors.New("action requires an active subscription")
	ErrBusy           = errors.New("operation already in flight")
	ErrLoadSuperseded = errors.New("load result discarded: document was edited while loading")
)

// ExportFilename is the fixed name of the downloaded PDF.
const ExportFilename = "resume.pdf"

// Identity is what the session reads from the identity provider.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Repo is the persistence gateway the session saves to and loads from.
type Repo interface {
	Upsert(ctx context.Context, cv *domain.SavedCV) (*domain.SavedCV, error)
	FetchOne(ctx context.Context, id, ownerID uuid.UUID) (*domain.SavedCV, error)
}

// Gate answers whether a user may save/export without paying first.
type Gate interface {
	Check(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Exporter rasterizes rendered preview HTML into a paginated PDF.
type Exporter interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// LoadState is the load-for-edit machine: Idle -> Loading -> {Loaded, Failed}.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	}
	return "unknown"
}

// GatedAction names the premium action a payment flow should retry.
type GatedAction string

const (
	ActionNone   GatedAction = ""
	ActionSave   GatedAction = "save"
	ActionExport GatedAction = "export"
)

// Fonts is the selectable font catalog, Poppins first.
var Fonts = []string{
	"Poppins", "Arial", "Helvetica", "Times New Roman", "Courier New",
	"Verdana", "Georgia", "Palatino", "Garamond", "Bookman",
	"Comic Sans MS", "Trebuchet MS", "Arial Black",
}

var fontSizePixels = map[string]string{
	"XS": "12px",
	"S":  "14px",
	"M":  "16px",
	"L":  "18px",
	"XL": "20px",
}

// Session is the editor orchestrator: one per open document. It composes the
// form state store and the section registry with the session-only layout
// state, and dispatches persistence and export through the injected
// collaborators.
type Session struct {
	id       uuid.UUID
	store    *Store
	registry *Registry
	renderer *preview.Renderer
	repo     Repo
	gate     Gate
	exporter Exporter
	log      zerolog.Logger

	mu          sync.Mutex
	user        *Identity
	authEpoch   uint64
	added       []domain.SectionKind
	open        map[domain.SectionKind]bool
	openEntries map[domain.SectionKind][]int

	template    string
	font        string
	fontSize    string
	fontSizePx  string
	textColor   string
	headerColor string

	loadState LoadState
	loadedID  uuid.UUID
	savedID   uuid.UUID
	saving    bool
	exporting bool
	pending   GatedAction
}

func NewSession(repo Repo, gate Gate, exporter Exporter, renderer *preview.Renderer, log zerolog.Logger) *Session {
	return &Session{
		id:          uuid.New(),
		store:       NewStore(),
		registry:    NewRegistry(),
		renderer:    renderer,
		repo:        repo,
		gate:        gate,
		exporter:    exporter,
		log:         log,
		added:       domain.DefaultSectionOrder(),
		open:        map[domain.SectionKind]bool{domain.SectionPersonalInfo: true},
		openEntries: map[domain.SectionKind][]int{},
		template:    preview.TemplateDefault,
		font:        "Poppins",
		fontSize:    "M",
		fontSizePx:  "16px",
		textColor:   "#000000",
		headerColor: "#000000",
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// SetIdentity installs (or clears) the authenticated user. An identity
// change resets the load machine so a previous user's load guard cannot
// suppress loads for the next one.
func (s *Session) SetIdentity(user *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	same := (s.user == nil && user == nil) ||
		(s.user != nil && user != nil && s.user.ID == user.ID)
	if same {
		return
	}
	s.user = user
	s.authEpoch++
	s.loadState = LoadIdle
	s.loadedID = uuid.Nil
	s.pending = ActionNone
}

// Identity returns the current user, or nil.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// --- document operations (delegated to the store) ---

func (s *Session) GetValue(path string) (interface{}, error) {
	return s.store.GetValue(path)
}

func (s *Session) SetValue(path string, value interface{}) error {
	return s.store.SetValue(path, value)
}

func (s *Session) Snapshot() *domain.Document {
	return s.store.Snapshot()
}

// AddEntity appends a blank entry to the list and makes it the only open
// entry of its section: focus follows what was just added.
func (s *Session) AddEntity(listPath string) (int, error) {
	idx, err := s.store.AppendItem(listPath)
	if err != nil {
		return 0, err
	}
	kind, _ := listKind(listPath)
	s.mu.Lock()
	s.openEntries[kind] = []int{idx}
	s.open[kind] = true
	s.mu.Unlock()
	return idx, nil
}

// RemoveEntity removes one entry and collapses the section's entry focus.
func (s *Session) RemoveEntity(listPath string, index int) error {
	if err := s.store.RemoveItem(listPath, index); err != nil {
		return err
	}
	kind, _ := listKind(listPath)
	s.mu.Lock()
	delete(s.openEntries, kind)
	s.mu.Unlock()
	return nil
}

// AddOptionalField activates an optional personal-info field.
func (s *Session) AddOptionalField(t domain.OptionalFieldType) (domain.OptionalField, error) {
	return s.store.AddOptionalField(t), nil
}

// RemoveOptionalField deactivates an optional field, returning its type to
// the available pool.
func (s *Session) RemoveOptionalField(id string) {
	s.store.RemoveOptionalField(id)
}

// --- layout operations ---

// AddSection makes a section present in the form again. Duplicates no-op.
func (s *Session) AddSection(kind domain.SectionKind) {
	if _, ok := s.registry.Lookup(kind); !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.added {
		if k == kind {
			return
		}
	}
	s.added = append(s.added, kind)
}

// RemoveSection removes a section from the form. Personal info is never
// removable; the call silently no-ops, it is not an error.
func (s *Session) RemoveSection(kind domain.SectionKind) {
	if kind == domain.SectionPersonalInfo {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.added[:0]
	for _, k := range s.added {
		if k != kind {
			out = append(out, k)
		}
	}
	s.added = out
	delete(s.open, kind)
}

// MoveSection swaps the section at index with its neighbor. Both boundaries
// no-op: up at 0 and down at the end neither throw nor wrap.
func (s *Session) MoveSection(index int, direction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newIndex int
	switch direction {
	case "up":
		newIndex = index - 1
	case "down":
		newIndex = index + 1
	default:
		return
	}
	if index < 0 || index >= len(s.added) || newIndex < 0 || newIndex >= len(s.added) {
		return
	}
	s.added[index], s.added[newIndex] = s.added[newIndex], s.added[index]
}

// ToggleOpen flips a section's expanded state in the form.
func (s *Session) ToggleOpen(kind domain.SectionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[kind] = !s.open[kind]
}

// ToggleHidden flips a section's preview visibility. The section stays
// present and editable either way.
func (s *Session) ToggleHidden(kind domain.SectionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.ToggleHidden(kind)
}

func (s *Session) SetTemplate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range preview.TemplateNames() {
		if t == name {
			s.template = name
			return
		}
	}
}

func (s *Session) SetFont(font string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range Fonts {
		if f == font {
			s.font = font
			return
		}
	}
}

// SetFontSize maps the size label to pixels; unknown labels fall back to M.
func (s *Session) SetFontSize(size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	px, ok := fontSizePixels[size]
	if !ok {
		size, px = "M", "16px"
	}
	s.fontSize = size
	s.fontSizePx = px
}

// SetColor sets text and header color together, like the original picker.
func (s *Session) SetColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textColor = color
	s.headerColor = color
}

// LayoutState is a JSON-friendly snapshot of the session-only editor state.
type LayoutState struct {
	AddedSections []domain.SectionKind         `json:"addedSections"`
	OpenSections  []domain.SectionKind         `json:"openSections"`
	OpenEntries   map[domain.SectionKind][]int `json:"openEntries"`
	Sections      []domain.SectionDescriptor   `json:"sections"`
	Template      string                       `json:"selectedTemplate"`
	Font          string                       `json:"selectedFont"`
	FontSize      string                       `json:"fontSize"`
	FontSizePx    string                       `json:"fontSizePixels"`
	TextColor     string                       `json:"selectedColor"`
	HeaderColor   string                       `json:"headerColor"`
	LoadState     string                       `json:"loadState"`
	Saving        bool                         `json:"isSaving"`
	Exporting     bool                         `json:"isDownloading"`
}

// Layout returns the current layout state.
func (s *Session) Layout() LayoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := LayoutState{
		AddedSections: append([]domain.SectionKind(nil), s.added...),
		OpenEntries:   map[domain.SectionKind][]int{},
		Sections:      s.registry.Descriptors(),
		Template:      s.template,
		Font:          s.font,
		FontSize:      s.fontSize,
		FontSizePx:    s.fontSizePx,
		TextColor:     s.textColor,
		HeaderColor:   s.headerColor,
		LoadState:     s.loadState.String(),
		Saving:        s.saving,
		Exporting:     s.exporting,
	}
	for _, k := range s.added {
		if s.open[k] {
			out.OpenSections = append(out.OpenSections, k)
		}
	}
	for k, v := range s.openEntries {
		out.OpenEntries[k] = append([]int(nil), v...)
	}
	return out
}

// OpenEntryIndexes returns which entries of a section are expanded.
func (s *Session) OpenEntryIndexes(kind domain.SectionKind) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.openEntries[kind]...)
}

// Preview renders the current document through the selected template.
func (s *Session) Preview() (preview.Output, error) {
	s.mu.Lock()
	in := preview.Input{
		Order:       append([]domain.SectionKind(nil), s.added...),
		Sections:    s.registry.Descriptors(),
		Template:    s.template,
		Font:        s.font,
		FontSizePx:  s.fontSizePx,
		TextColor:   s.textColor,
		HeaderColor: s.headerColor,
	}
	s.mu.Unlock()
	in.Doc = s.store.Snapshot()
	return s.renderer.Render(in)
}

// PendingAction reports which gated action is waiting on a payment.
func (s *Session) PendingAction() GatedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// checkEntitled runs the gate, failing closed: a gate error never grants
// access, it logs and reads as "not subscribed".
func (s *Session) checkEntitled(ctx context.Context, userID uuid.UUID) bool {
	ok, err := s.gate.Check(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("entitlement check failed, treating as not subscribed")
		return false
	}
	return ok
}

// Save persists the current document under the derived title. The upsert key
// (user_id, title) makes repeated saves overwrite the same record. While one
// save is in flight another cannot start.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil {
		s.pending = ActionSave
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	if s.saving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.saving = true
	user := *s.user
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if !s.checkEntitled(ctx, user.ID) {
		s.mu.Lock()
		s.pending = ActionSave
		s.mu.Unlock()
		return ErrNotEntitled
	}

	snap := s.store.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	if err := domain.ValidatePayload(data); err != nil {
		return err
	}

	cv := &domain.SavedCV{
		UserID: user.ID,
		Title:  snap.DerivedTitle(),
		Data:   data,
	}
	saved, err := s.repo.Upsert(ctx, cv)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Str("title", cv.Title).Msg("save failed")
		return err
	}
	s.mu.Lock()
	s.pending = ActionNone
	s.savedID = saved.ID
	s.mu.Unlock()
	s.log.Info().Str("user_id", user.ID.String()).Str("title", cv.Title).Msg("cv saved")
	return nil
}

// LastSavedID returns the row id of the most recent successful save.
func (s *Session) LastSavedID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedID
}

// LoadForEdit fetches a saved document scoped to the current user and resets
// the store to it. Overlapping loads and reloads of an already-loaded id are
// suppressed. A user edit made after the load started wins: the store applies
// the fetched document only if its mutation version is still the one observed
// when the load began, so an edit whose write already landed can never be
// clobbered by the replacement.
func (s *Session) LoadForEdit(ctx context.Context, docID uuid.UUID) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	if s.loadState == LoadLoading {
		s.mu.Unlock()
		return nil
	}
	if s.loadState == LoadLoaded && s.loadedID == docID {
		s.mu.Unlock()
		return nil
	}
	s.loadState = LoadLoading
	user := *s.user
	startEpoch := s.authEpoch
	startVersion := s.store.Version()
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		if s.authEpoch == startEpoch {
			s.loadState = LoadFailed
		}
		s.mu.Unlock()
		return err
	}

	cv, err := s.repo.FetchOne(ctx, docID, user.ID)
	if err != nil {
		return fail(err)
	}
	doc, err := domain.DecodeDocument(cv.Data)
	if err != nil {
		return fail(err)
	}

	s.mu.Lock()
	if s.authEpoch != startEpoch {
		s.mu.Unlock()
		return ErrLoadSuperseded
	}
	s.mu.Unlock()

	if !s.store.ResetIfUnchanged(doc, startVersion) {
		return fail(ErrLoadSuperseded)
	}

	s.mu.Lock()
	if s.authEpoch == startEpoch {
		s.loadState = LoadLoaded
		s.loadedID = docID
	}
	s.mu.Unlock()
	return nil
}

// LoadStatus reports the load machine's state and the loaded document id.
func (s *Session) LoadStatus() (LoadState, uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadState, s.loadedID
}

// RequestExport renders the preview and rasterizes it to a PDF. The busy
// flag is reset even when the rasterizer times out waiting for its target.
func (s *Session) RequestExport(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.user == nil {
		s.pending = ActionExport
		s.mu.Unlock()
		return nil, ErrNotSignedIn
	}
	if s.exporting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.exporting = true
	user := *s.user
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}()

	if !s.checkEntitled(ctx, user.ID) {
		s.mu.Lock()
		s.pending = ActionExport
		s.mu.Unlock()
		return nil, ErrNotEntitled
	}

	out, err := s.Preview()
	if err != nil {
		return nil, err
	}
	pdf, err := s.exporter.RenderHTMLToPDF(ctx, out.HTML)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("export failed")
		return nil, err
	}
	s.mu.Lock()
	s.pending = ActionNone
	s.mu.Unlock()
	return pdf, nil
}

// Exporting reports whether an export is in flight.
func (s *Session) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// PaymentCaptured retries the gated action that triggered the payment flow.
// The entitlement record must already be updated by the billing handler.
func (s *Session) PaymentCaptured(ctx context.Context) (GatedAction, []byte, error) {
	s.mu.Lock()
	action := s.pending
	s.mu.Unlock()
	switch action {
	case ActionSave:
		return action, nil, s.Save(ctx)
	case ActionExport:
		pdf, err := s.RequestExport(ctx)
		return action, pdf, err
	}
	return ActionNone, nil, nil
}
