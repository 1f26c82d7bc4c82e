package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response is the error envelope. Successful calls render their payload directly.
type Response struct {
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Conflicts []model.Booking   `json:"conflicts,omitempty"`
}

func errorResponse(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse(msg))
}

func invalidFields(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Response{Status: StatusError, Error: "validation failed", Fields: fields})
}

// fail maps engine errors onto status codes. Unknown errors are logged and hidden.
func fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		ve *booking.ValidationError
		ce *booking.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		invalidFields(w, r, ve.Fields)
	case errors.As(err, &ce):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, Response{Status: StatusError, Error: ce.Error(), Conflicts: ce.Conflicts})
	case errors.Is(err, booking.ErrInvalidInterval):
		badRequest(w, r, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse("booking not found"))
	default:
		log.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse("internal error"))
	}
}
