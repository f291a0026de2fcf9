package http

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cv-builder/internal/auth"
	"cv-builder/internal/domain"
	"cv-builder/internal/editor"
)

// CVLister lists a user's saved documents without their payloads.
type CVLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SavedCV, error)
}

// Subscriber records a completed payment.
type Subscriber interface {
	MarkSubscribed(ctx context.Context, userID uuid.UUID) error
}

// PhotoStore stores and serves profile photos. Nil when object
// storage is disabled.
type PhotoStore interface {
	Put(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (string, error)
	Get(ctx context.Context, userID uuid.UUID) ([]byte, string, error)
}

type Handler struct {
	sessions   *editor.Manager
	cvs        CVLister
	subscriber Subscriber
	photos     PhotoStore
	log        zerolog.Logger
}

func NewHandler(sessions *editor.Manager, cvs CVLister, subscriber Subscriber, photos PhotoStore, log zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, cvs: cvs, subscriber: subscriber, photos: photos, log: log}
}

// Register mounts all routes on the app. The auth middleware must run
// before this group so identities are available in locals.
func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/sessions", h.OpenSession)
	api.Get("/sessions/:id/state", h.SessionState)
	api.Delete("/sessions/:id", h.CloseSession)

	api.Put("/sessions/:id/values", h.SetValue)
	api.Post("/sessions/:id/entries", h.AddEntry)
	api.Delete("/sessions/:id/entries", h.RemoveEntry)
	api.Post("/sessions/:id/optional-fields", h.AddOptionalField)
	api.Delete("/sessions/:id/optional-fields/:fieldId", h.RemoveOptionalField)

	api.Post("/sessions/:id/sections", h.AddSection)
	api.Delete("/sessions/:id/sections/:kind", h.RemoveSection)
	api.Post("/sessions/:id/sections/move", h.MoveSection)
	api.Post("/sessions/:id/sections/:kind/toggle-open", h.ToggleOpen)
	api.Post("/sessions/:id/sections/:kind/toggle-hidden", h.ToggleHidden)

	api.Put("/sessions/:id/style", h.SetStyle)
	api.Get("/sessions/:id/preview", h.Preview)

	api.Post("/sessions/:id/save", h.Save)
	api.Post("/sessions/:id/load", h.Load)
	api.Post("/sessions/:id/export", h.Export)
	api.Post("/sessions/:id/payment-captured", h.PaymentCaptured)

	api.Get("/cvs", h.ListCVs)
	api.Post("/photos", h.UploadPhoto)
	api.Get("/photos", h.GetPhoto)
}

// session resolves the session from the path and injects the caller's
// identity into it. Every session route goes through here so an
// identity change is observed before the operation runs.
func (h *Handler) session(c *fiber.Ctx) (*editor.Session, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if ident, ok := auth.IdentityFrom(c); ok {
		sess.SetIdentity(&ident)
	} else {
		sess.SetIdentity(nil)
	}
	return sess, nil
}

func (h *Handler) OpenSession(c *fiber.Ctx) error {
	var user *editor.Identity
	if ident, ok := auth.IdentityFrom(c); ok {
		user = &ident
	}
	sess := h.sessions.Open(user)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessionId": sess.ID().String()})
}

func (h *Handler) CloseSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session id"})
	}
	h.sessions.Close(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SessionState(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	loadState, loadedID := sess.LoadStatus()
	resp := fiber.Map{
		"layout":    sess.Layout(),
		"document":  sess.Snapshot(),
		"loadState": loadState.String(),
	}
	if loadedID != uuid.Nil {
		resp["loadedId"] = loadedID.String()
	}
	return c.JSON(resp)
}

type setValueReq struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func (h *Handler) SetValue(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req setValueReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := sess.SetValue(req.Path, req.Value); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type entryReq struct {
	List  string `json:"list"`
	Index int    `json:"index"`
}

func (h *Handler) AddEntry(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req entryReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	idx, err := sess.AddEntity(req.List)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"index": idx})
}

func (h *Handler) RemoveEntry(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req entryReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := sess.RemoveEntity(req.List, req.Index); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type optionalFieldReq struct {
	Type string `json:"type"`
}

func (h *Handler) AddOptionalField(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req optionalFieldReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	field, err := sess.AddOptionalField(domain.OptionalFieldType(req.Type))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(field)
}

func (h *Handler) RemoveOptionalField(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	sess.RemoveOptionalField(c.Params("fieldId"))
	return c.SendStatus(fiber.StatusNoContent)
}

type sectionReq struct {
	Kind string `json:"kind"`
}

func (h *Handler) AddSection(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req sectionReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	kind, ok := domain.ParseSectionKind(req.Kind)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown section kind"})
	}
	sess.AddSection(kind)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) RemoveSection(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	kind, ok := domain.ParseSectionKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown section kind"})
	}
	sess.RemoveSection(kind)
	return c.SendStatus(fiber.StatusNoContent)
}

type moveSectionReq struct {
	Index     int    `json:"index"`
	Direction string `json:"direction"`
}

func (h *Handler) MoveSection(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req moveSectionReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	sess.MoveSection(req.Index, req.Direction)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ToggleOpen(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	kind, ok := domain.ParseSectionKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown section kind"})
	}
	sess.ToggleOpen(kind)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ToggleHidden(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	kind, ok := domain.ParseSectionKind(c.Params("kind"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown section kind"})
	}
	sess.ToggleHidden(kind)
	return c.SendStatus(fiber.StatusNoContent)
}

type styleReq struct {
	Template string `json:"template,omitempty"`
	Font     string `json:"font,omitempty"`
	FontSize string `json:"fontSize,omitempty"`
	Color    string `json:"color,omitempty"`
}

func (h *Handler) SetStyle(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req styleReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if req.Template != "" {
		sess.SetTemplate(req.Template)
	}
	if req.Font != "" {
		sess.SetFont(req.Font)
	}
	if req.FontSize != "" {
		sess.SetFontSize(req.FontSize)
	}
	if req.Color != "" {
		sess.SetColor(req.Color)
	}
	return c.JSON(sess.Layout())
}

func (h *Handler) Preview(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	out, err := sess.Preview()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "render failed"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set("X-Preview-Pages", strconv.Itoa(out.Pages))
	return c.SendString(out.HTML)
}

func (h *Handler) Save(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Save(c.UserContext()); err != nil {
		return h.gatedError(c, err)
	}
	return c.JSON(fiber.Map{"saved": true, "cvId": sess.LastSavedID().String()})
}

type loadReq struct {
	CVID string `json:"cvId"`
}

func (h *Handler) Load(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req loadReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	docID, err := uuid.Parse(req.CVID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cvId"})
	}
	if err := sess.LoadForEdit(c.UserContext(), docID); err != nil {
		switch {
		case errors.Is(err, editor.ErrNotSignedIn):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cv not found"})
		case errors.Is(err, editor.ErrLoadSuperseded):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "load failed"})
		}
	}
	return c.JSON(fiber.Map{"document": sess.Snapshot()})
}

func (h *Handler) Export(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	pdf, err := sess.RequestExport(c.UserContext())
	if err != nil {
		return h.gatedError(c, err)
	}
	return h.sendPDF(c, pdf)
}

func (h *Handler) PaymentCaptured(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	if err := h.subscriber.MarkSubscribed(c.UserContext(), ident.ID); err != nil {
		h.log.Error().Err(err).Str("user", ident.ID.String()).Msg("failed to record subscription")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription update failed"})
	}

	action, pdf, err := sess.PaymentCaptured(c.UserContext())
	if err != nil {
		h.log.Warn().Err(err).Str("action", string(action)).Msg("retried action failed after payment")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "retry failed", "action": string(action)})
	}
	if action == editor.ActionExport {
		return h.sendPDF(c, pdf)
	}
	return c.JSON(fiber.Map{"subscribed": true, "retried": string(action)})
}

func (h *Handler) ListCVs(c *fiber.Ctx) error {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	cvs, err := h.cvs.ListByUser(c.UserContext(), ident.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list cvs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list failed"})
	}
	items := make([]fiber.Map, 0, len(cvs))
	for _, cv := range cvs {
		items = append(items, fiber.Map{
			"id":        cv.ID.String(),
			"title":     cv.Title,
			"updatedAt": cv.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"cvs": items})
}

func (h *Handler) UploadPhoto(c *fiber.Ctx) error {
	if h.photos == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "photo storage disabled"})
	}
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file required"})
	}
	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable upload"})
	}
	defer src.Close()
	data := make([]byte, file.Size)
	if _, err := io.ReadFull(src, data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable upload"})
	}
	contentType := file.Header.Get(fiber.HeaderContentType)
	name, err := h.photos.Put(c.UserContext(), ident.ID, data, contentType)
	if err != nil {
		h.log.Error().Err(err).Msg("photo upload failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}
	return c.JSON(fiber.Map{"object": name})
}

func (h *Handler) GetPhoto(c *fiber.Ctx) error {
	if h.photos == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "photo storage disabled"})
	}
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	data, contentType, err := h.photos.Get(c.UserContext(), ident.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

func (h *Handler) sendPDF(c *fiber.Ctx, pdf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+editor.ExportFilename+`"`)
	return c.Send(pdf)
}

// gatedError maps the save/export guard errors to HTTP statuses. A
// payment-required response tells the client which action is parked.
func (h *Handler) gatedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, editor.ErrNotSignedIn):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error(), "pending": string(h.pending(c))})
	case errors.Is(err, editor.ErrNotEntitled):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error(), "pending": string(h.pending(c))})
	case errors.Is(err, editor.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("gated action failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (h *Handler) pending(c *fiber.Ctx) editor.GatedAction {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return editor.ActionNone
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return editor.ActionNone
	}
	return sess.PendingAction()
}
