package handler

import (
	"net/http"

	apperrors "venuebook/pkg/errors"
	httputil "venuebook/pkg/http"
	"venuebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

func statsFilter(r *http.Request) (model.StatsFilter, error) {
	from, err := httputil.QueryDate(r, "from", true)
	if err != nil {
		return model.StatsFilter{}, err
	}
	to, err := httputil.QueryDate(r, "to", true)
	if err != nil {
		return model.StatsFilter{}, err
	}
	return model.StatsFilter{From: from, To: to, UserID: r.URL.Query().Get("user_id")}, nil
}

// StatsByDate is open to every caller, but non-admins only ever see their
// own bookings.
func (h *BookingHandler) StatsByDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "StatsByDate")
	if !ok {
		return
	}

	filter, err := statsFilter(r)
	if err != nil {
		h.writeError(w, "StatsByDate", err)
		return
	}
	if !actor.IsAdmin() {
		if filter.UserID != "" && filter.UserID != actor.ID {
			h.writeError(w, "StatsByDate", apperrors.Forbidden("You can only view your own statistics"))
			return
		}
		filter.UserID = actor.ID
	}

	counts, err := h.stats.CountsByDate(r.Context(), filter)
	if err != nil {
		h.writeError(w, "StatsByDate", err)
		return
	}
	if err := httputil.WriteSuccess(w, counts); err != nil {
		h.log.Error("failed to write success response", "handler", "StatsByDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) StatsByUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.groupedStats(w, r, "StatsByUser",
		func(f model.StatsFilter, st *model.Status) (any, error) { return h.stats.StatsByUser(r.Context(), f, st) },
		func(f model.StatsFilter) (any, error) { return h.stats.DetailedStatsByUser(r.Context(), f) },
	)
}

func (h *BookingHandler) StatsBySpace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.groupedStats(w, r, "StatsBySpace",
		func(f model.StatsFilter, st *model.Status) (any, error) { return h.stats.StatsBySpace(r.Context(), f, st) },
		func(f model.StatsFilter) (any, error) { return h.stats.DetailedStatsBySpace(r.Context(), f) },
	)
}

// groupedStats serves the admin-only per-user and per-space reports. With
// detailed=true the status breakdown is returned and status must be absent.
func (h *BookingHandler) groupedStats(
	w http.ResponseWriter,
	r *http.Request,
	handler string,
	flat func(model.StatsFilter, *model.Status) (any, error),
	detailed func(model.StatsFilter) (any, error),
) {
	actor, ok := h.actor(w, r, handler)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, handler, apperrors.Forbidden("Only administrators can view these statistics"))
		return
	}

	filter, err := statsFilter(r)
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	filter.UserID = ""

	status, err := httputil.QueryStatus(r)
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	wantDetailed, err := httputil.QueryBool(r, "detailed")
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	var result any
	switch {
	case wantDetailed && status != nil:
		err = apperrors.InvalidInput("status cannot be combined with detailed")
	case wantDetailed:
		result, err = detailed(filter)
	default:
		result, err = flat(filter, status)
	}
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}
