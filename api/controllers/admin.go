package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hoangkimbao/garage-backend/api/responses"
	"github.com/hoangkimbao/garage-backend/api/validators"
	"github.com/hoangkimbao/garage-backend/internal/appointments"
	"github.com/hoangkimbao/garage-backend/internal/catalog"
	"github.com/hoangkimbao/garage-backend/internal/contact"
	"github.com/hoangkimbao/garage-backend/internal/revenue"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type partRequest struct {
	CategoryID  int64           `json:"category_id" validate:"required,min=1"`
	Name        string          `json:"name" validate:"required"`
	PartNumber  string          `json:"part_number" validate:"required"`
	Brand       string          `json:"brand" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Quantity    int             `json:"quantity" validate:"min=0"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

func (p partRequest) toInput() catalog.PartInput {
	return catalog.PartInput{
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		PartNumber:  p.PartNumber,
		Brand:       p.Brand,
		Description: p.Description,
		Tags:        p.Tags,
		Price:       p.Price,
		Quantity:    p.Quantity,
		ImageURL:    p.ImageURL,
	}
}

// AdminPartCreate adds a part to the catalog.
func AdminPartCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body partRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.CreatePart(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

// AdminPartUpdate overwrites a part's catalog fields.
func AdminPartUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		partID, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body partRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.UpdatePart(r.Context(), partID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, part)
	}
}

// AdminPartDelete soft-deletes a part; existing order lines keep their copy.
func AdminPartDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		partID, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePart(r.Context(), partID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "part deleted"})
	}
}

// AdminPartsSearch matches parts for the back-office picker.
func AdminPartsSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		parts, err := svc.SearchParts(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, parts)
	}
}

// AdminAppointments lists all bookings, optionally filtered by ?status=.
func AdminAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		filter := appointments.AppointmentFilter{
			Status: enums.AppointmentStatus(r.URL.Query().Get("status")),
		}
		list, err := svc.ListAll(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type appointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminAppointmentStatus moves a booking through its lifecycle and notifies
// the customer.
func AdminAppointmentStatus(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		appointmentID, err := validators.ParseIDParam(r, "appointmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body appointmentStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseAppointmentStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		appointment, err := svc.UpdateStatus(r.Context(), appointmentID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, appointment)
	}
}

// AdminRevenueSummary reports today / this month / all-time totals.
func AdminRevenueSummary(svc *revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// AdminRevenueSeries reports a contiguous monthly breakdown (?months=, max 36).
func AdminRevenueSeries(svc *revenue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		months, err := validators.ParseQueryInt(r, "months", 12, 1, 36)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		series, err := svc.MonthlySeries(r.Context(), months)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, series)
	}
}

// AdminContactMessages lists contact-form submissions, newest first.
func AdminContactMessages(svc *contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contact service unavailable"))
			return
		}

		messages, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, messages)
	}
}
