package controllers

import (
	"net/http"
	"time"

	"github.com/hoangkimbao/garage-backend/api/middleware"
	"github.com/hoangkimbao/garage-backend/api/responses"
	"github.com/hoangkimbao/garage-backend/api/validators"
	"github.com/hoangkimbao/garage-backend/internal/appointments"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type carRequest struct {
	LicensePlate string `json:"license_plate" validate:"required"`
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Year         int    `json:"year" validate:"required"`
}

type bookingRequest struct {
	CarID           int64   `json:"car_id" validate:"required,min=1"`
	ServiceIDs      []int64 `json:"service_ids" validate:"required,min=1"`
	AppointmentDate string  `json:"appointment_date" validate:"required"`
	Notes           *string `json:"notes,omitempty"`
}

// CarCreate registers a car under the caller's account.
func CarCreate(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		var body carRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.AddCar(r.Context(), middleware.UserIDFromContext(r.Context()), appointments.CarInput{
			LicensePlate: body.LicensePlate,
			Make:         body.Make,
			Model:        body.Model,
			Year:         body.Year,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, car)
	}
}

// MyCars lists the caller's registered cars.
func MyCars(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		cars, err := svc.MyCars(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cars)
	}
}

// CarDelete removes one of the caller's cars.
func CarDelete(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		carID, err := validators.ParseIDParam(r, "carId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCar(r.Context(), middleware.UserIDFromContext(r.Context()), carID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "car removed"})
	}
}

// AppointmentBook schedules a workshop visit for one of the caller's cars.
func AppointmentBook(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		var body bookingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := time.Parse(time.RFC3339, body.AppointmentDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "appointment_date must be RFC3339"))
			return
		}

		appointment, err := svc.Book(r.Context(), appointments.BookingInput{
			CustomerID:      middleware.UserIDFromContext(r.Context()),
			CarID:           body.CarID,
			ServiceIDs:      body.ServiceIDs,
			AppointmentDate: date,
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, appointment)
	}
}

// MyAppointments lists the caller's bookings.
func MyAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "appointments service unavailable"))
			return
		}

		list, err := svc.MyAppointments(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AppointmentDetail returns one booking. Customers only see their own;
// admins see any.
func AppointmentDetail(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
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

		appointment, err := svc.Get(r.Context(), appointmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if middleware.RoleFromContext(ctx) != string(enums.UserRoleAdmin) &&
			appointment.CustomerID != middleware.UserIDFromContext(ctx) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found"))
			return
		}

		responses.WriteSuccess(w, appointment)
	}
}
