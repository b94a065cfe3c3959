package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/hoangkimbao/garage-backend/api/responses"
	"github.com/hoangkimbao/garage-backend/internal/payments/vnpay"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type paymentReturnResponse struct {
	Success      bool   `json:"success"`
	OrderID      int64  `json:"order_id"`
	ResponseCode string `json:"response_code"`
	Message      string `json:"message"`
}

// PaymentReturn handles the buyer's browser redirect back from the gateway.
func PaymentReturn(svc *vnpay.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		result, err := svc.HandleReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentReturnResponse{
			Success:      result.Success,
			OrderID:      result.OrderID,
			ResponseCode: result.ResponseCode,
			Message:      result.Message,
		})
	}
}

// PaymentIPN handles the gateway's server-to-server notification. The contract
// requires HTTP 200 with a bare RspCode/Message body on every outcome, so the
// standard envelope is bypassed here.
func PaymentIPN(svc *vnpay.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp vnpay.IPNResponse
		if svc == nil {
			resp = vnpay.IPNResponse{RspCode: vnpay.RspCodeInvalidData, Message: "Invalid data"}
		} else {
			values := r.URL.Query()
			if len(values) == 0 && r.Method == http.MethodPost {
				if err := r.ParseForm(); err == nil {
					values = r.PostForm
				}
			}
			resp = svc.HandleIPN(r.Context(), values)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil && logg != nil {
			logg.Error(r.Context(), "writing ipn response", err)
		}
	}
}
