package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/spacebook/libs/auth"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

// ActorHeader carries the caller id set by the gateway when tokens are not verified here.
const ActorHeader = "X-User-Id"

// Engine is the booking surface the HTTP layer drives. *booking.Manager implements it.
type Engine interface {
	Create(ctx context.Context, d model.Draft, actor string) (model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	Update(ctx context.Context, id string, p model.Patch, actor string) (model.Booking, error)
	ChangeStatus(ctx context.Context, id string, status model.BookingStatus, actor string) (model.Booking, error)
	SoftDelete(ctx context.Context, id, actor string) error
	Restore(ctx context.Context, id, actor string) (model.Booking, error)
	HardDelete(ctx context.Context, id, actor string) error
	Clone(ctx context.Context, id string, start, end time.Time, actor string) (model.Booking, error)
	CheckConflicts(ctx context.Context, space string, start, end time.Time, excludeID string) ([]model.Booking, error)
	List(ctx context.Context, f model.Filter, p model.Page) (model.PageResult, error)
	Slots(ctx context.Context, date time.Time, space string, durationHours int) ([]availability.Slot, error)
	Resources(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, from, to *time.Time) (model.Stats, error)
	Window() availability.Window
}

type BookingHandler struct {
	engine   Engine
	logger   *slog.Logger
	validate *validator.Validate
}

func NewBookingHandler(engine Engine, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		engine:   engine,
		logger:   logger,
		validate: newValidator(),
	}
}

type conflictsResponse struct {
	HasConflict bool            `json:"has_conflict"`
	Conflicts   []model.Booking `json:"conflicts"`
}

type slotsResponse struct {
	Date          string              `json:"date"`
	Space         string              `json:"space"`
	DurationHours int                 `json:"duration_hours"`
	Slots         []availability.Slot `json:"slots"`
}

type spacesResponse struct {
	Spaces []string `json:"spaces"`
}

// Routes builds the /api/v1 router. A nil verifier leaves the routes open.
func (h *BookingHandler) Routes(verifier *auth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(auth.RequireBearer(verifier))

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.SoftDelete)
			r.Post("/status", h.ChangeStatus)
			r.Post("/restore", h.Restore)
			r.Post("/clone", h.Clone)
			r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/purge", h.HardDelete)
		})
	})
	r.Get("/conflicts", h.CheckConflicts)
	r.Get("/slots", h.Slots)
	r.Get("/spaces", h.Spaces)
	r.Get("/stats", h.Stats)
	return r
}

func actor(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}

// decode reads and validates a JSON body; false means a response was already written.
func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		badRequest(w, r, "failed to decode request")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		invalidFields(w, r, validationFields(err))
		return false
	}
	return true
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := req.draft()
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	b, err := h.engine.Create(r.Context(), d, actor(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, b)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := req.patch()
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	b, err := h.engine.Update(r.Context(), chi.URLParam(r, "id"), p, actor(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *BookingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		invalidFields(w, r, map[string]string{"booking_status": "must be one of pending, confirmed, cancelled"})
		return
	}
	b, err := h.engine.ChangeStatus(r.Context(), chi.URLParam(r, "id"), status, actor(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *BookingHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SoftDelete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.NoContent(w, r)
}

func (h *BookingHandler) Restore(w http.ResponseWriter, r *http.Request) {
	b, err := h.engine.Restore(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *BookingHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.HardDelete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.NoContent(w, r)
}

func (h *BookingHandler) Clone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := parseTimestamp("start_at", req.StartAt)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	end, err := parseTimestamp("end_at", req.EndAt)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	b, err := h.engine.Clone(r.Context(), chi.URLParam(r, "id"), start, end, actor(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, b)
}

func (h *BookingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	space := strings.TrimSpace(q.Get("space"))
	if space == "" {
		invalidFields(w, r, map[string]string{"space": "is required"})
		return
	}
	start, err := parseTimestamp("start", q.Get("start"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	end, err := parseTimestamp("end", q.Get("end"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	conflicts, err := h.engine.CheckConflicts(r.Context(), space, start, end, q.Get("exclude_id"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if conflicts == nil {
		conflicts = []model.Booking{}
	}
	render.JSON(w, r, conflictsResponse{HasConflict: len(conflicts) > 0, Conflicts: conflicts})
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	space := strings.TrimSpace(q.Get("space"))
	if space == "" {
		invalidFields(w, r, map[string]string{"space": "is required"})
		return
	}
	date, err := availability.ParseDate(q.Get("date"), h.engine.Window().Location)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	duration := 1
	if raw := strings.TrimSpace(q.Get("duration_hours")); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil {
			invalidFields(w, r, map[string]string{"duration_hours": "must be an integer"})
			return
		}
	}
	slots, err := h.engine.Slots(r.Context(), date, space, duration)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, slotsResponse{
		Date:          date.Format(time.DateOnly),
		Space:         space,
		DurationHours: duration,
		Slots:         slots,
	})
}

func (h *BookingHandler) Spaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.engine.Resources(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if spaces == nil {
		spaces = []string{}
	}
	render.JSON(w, r, spacesResponse{Spaces: spaces})
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	stats, err := h.engine.Stats(r.Context(), from, to)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, stats)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	f := model.Filter{
		From:      from,
		To:        to,
		SpaceName: strings.TrimSpace(q.Get("space")),
		Search:    strings.TrimSpace(q.Get("q")),
	}
	fields := map[string]string{}
	for _, raw := range splitParam(q.Get("type")) {
		t, err := model.ParseType(raw)
		if err != nil {
			fields["type"] = "must be one of event, rental, meeting, other"
			continue
		}
		f.Types = append(f.Types, t)
	}
	for _, raw := range splitParam(q.Get("status")) {
		s, err := model.ParseStatus(raw)
		if err != nil {
			fields["status"] = "must be one of pending, confirmed, cancelled"
			continue
		}
		f.Statuses = append(f.Statuses, s)
	}
	var page model.Page
	var err error
	if raw := q.Get("include_deleted"); raw != "" {
		if f.IncludeDeleted, err = strconv.ParseBool(raw); err != nil {
			fields["include_deleted"] = "must be a boolean"
		}
	}
	if raw := q.Get("page"); raw != "" {
		if page.Page, err = strconv.Atoi(raw); err != nil {
			fields["page"] = "must be an integer"
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if page.PageSize, err = strconv.Atoi(raw); err != nil {
			fields["page_size"] = "must be an integer"
		}
	}
	if len(fields) > 0 {
		invalidFields(w, r, fields)
		return
	}

	res, err := h.engine.List(r.Context(), f, page)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if res.Items == nil {
		res.Items = []model.Booking{}
	}
	render.JSON(w, r, res)
}

func (h *BookingHandler) rangeParams(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	loc := h.engine.Window().Location
	q := r.URL.Query()
	var err error
	if from, err = parseBound("from", q.Get("from"), loc); err != nil {
		fail(w, r, h.logger, err)
		return nil, nil, false
	}
	if to, err = parseBound("to", q.Get("to"), loc); err != nil {
		fail(w, r, h.logger, err)
		return nil, nil, false
	}
	return from, to, true
}

func splitParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
