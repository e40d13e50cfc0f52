package handler

import (
	"net/http"

	"venuebook/internal/bookings/service"
	apperrors "venuebook/pkg/errors"
	httputil "venuebook/pkg/http"
	"venuebook/pkg/logger"
	"venuebook/pkg/middleware"
	"venuebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	bookings service.BookingService
	stats    service.StatsService
	log      *logger.Logger
}

func NewBookingHandler(bookings service.BookingService, stats service.StatsService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		stats:    stats,
		log:      log,
	}
}

// SlotView is the public shape of an occupied interval. Other users'
// notes and ids stay out of availability responses.
type SlotView struct {
	BookingID string          `json:"booking_id"`
	Date      model.Date      `json:"date"`
	StartTime model.TimeOfDay `json:"start_time"`
	EndTime   model.TimeOfDay `json:"end_time"`
	Status    model.Status    `json:"status"`
}

type ConflictResponse struct {
	Conflict bool      `json:"conflict"`
	Booking  *SlotView `json:"conflicting_booking,omitempty"`
}

func slotOf(b *model.Booking) *SlotView {
	return &SlotView{
		BookingID: b.ID,
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Status:    b.Status,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "Create")
	if !ok {
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.bookings.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "List")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	filter, err := bookingFilter(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.bookings.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func bookingFilter(r *http.Request) (model.BookingFilter, error) {
	query := r.URL.Query()
	filter := model.BookingFilter{
		SpaceID: query.Get("space_id"),
		UserID:  query.Get("user_id"),
	}

	status, err := httputil.QueryStatus(r)
	if err != nil {
		return filter, err
	}
	if status != nil {
		filter.Status = *status
	}
	if filter.From, err = httputil.QueryDate(r, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = httputil.QueryDate(r, "to", false); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "Update")
	if !ok {
		return
	}

	var patch model.BookingUpdate
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.bookings.Update(r.Context(), actor, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.bookings.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Occupied(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, ok := h.actor(w, r, "Occupied"); !ok {
		return
	}

	date, err := httputil.QueryDate(r, "date", true)
	if err != nil {
		h.writeError(w, "Occupied", err)
		return
	}

	bookings, err := h.bookings.Occupied(r.Context(), ps.ByName("spaceId"), date)
	if err != nil {
		h.writeError(w, "Occupied", err)
		return
	}

	slots := make([]*SlotView, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, slotOf(b))
	}
	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Occupied", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Conflict(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, ok := h.actor(w, r, "Conflict"); !ok {
		return
	}

	query := r.URL.Query()
	req := &model.BookingRequest{
		SpaceID:   ps.ByName("spaceId"),
		Date:      query.Get("date"),
		StartTime: query.Get("start_time"),
		EndTime:   query.Get("end_time"),
	}

	found, err := h.bookings.CheckConflict(r.Context(), req, query.Get("exclude_id"))
	if err != nil {
		h.writeError(w, "Conflict", err)
		return
	}

	resp := ConflictResponse{}
	if found != nil {
		resp.Conflict = true
		resp.Booking = slotOf(found)
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Conflict", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) actor(w http.ResponseWriter, r *http.Request, handler string) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.ID == "" {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
		return model.Actor{}, false
	}
	return actor, true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)

	router.GET("/api/v1/spaces/:spaceId/occupied", h.Occupied)
	router.GET("/api/v1/spaces/:spaceId/conflict", h.Conflict)

	router.GET("/api/v1/stats/dates", h.StatsByDate)
	router.GET("/api/v1/stats/users", h.StatsByUser)
	router.GET("/api/v1/stats/spaces", h.StatsBySpace)
}
