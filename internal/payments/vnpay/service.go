package vnpay

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hoangkimbao/garage-backend/internal/orders"
	"github.com/hoangkimbao/garage-backend/pkg/config"
	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
	"github.com/hoangkimbao/garage-backend/pkg/metrics"
)

// IPN response codes defined by the gateway contract. Business failures after
// a valid signature still answer with code 00 so the gateway stops retrying.
const (
	RspCodeSuccess          = "00"
	RspCodeOrderNotFound    = "01"
	RspCodeAlreadyConfirmed = "02"
	RspCodeInvalidSignature = "97"
	RspCodeInvalidData      = "99"

	responseCodeSuccess = "00"
)

// IPNResponse is the JSON body returned to the gateway's server-to-server
// callback. It always rides on HTTP 200.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// ReturnResult summarizes the browser return-URL outcome for rendering.
type ReturnResult struct {
	Success      bool
	OrderID      int64
	ResponseCode string
	Message      string
}

// Service drives the payment confirmation flow on top of the gateway adapter.
type Service struct {
	gateway *Gateway
	orders  orders.Service
	policy  config.PaymentConfig
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
}

// NewService wires the payment service with the required dependencies.
func NewService(gateway *Gateway, ordersSvc orders.Service, policy config.PaymentConfig, payMetrics *metrics.PaymentMetrics, logg *logger.Logger) (*Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{
		gateway: gateway,
		orders:  ordersSvc,
		policy:  policy,
		metrics: payMetrics,
		logg:    logg,
	}, nil
}

// PaymentURL builds the signed redirect URL for an order.
func (s *Service) PaymentURL(ctx context.Context, order *models.Order, clientIP string) (string, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	paymentURL, err := s.gateway.BuildPaymentURL(PaymentRequest{
		OrderID:  order.ID,
		Total:    order.TotalPrice,
		ClientIP: clientIP,
	})
	if err != nil {
		return "", err
	}
	s.metrics.IncURLBuilt()
	return paymentURL, nil
}

// HandleReturn processes the browser redirect back from the gateway. A bad
// signature or malformed reference is an error; a declined payment is a
// non-error result with Success=false.
func (s *Service) HandleReturn(ctx context.Context, values url.Values) (*ReturnResult, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no gateway parameters received")
	}
	if err := s.gateway.VerifyParams(values); err != nil {
		s.logg.Warn(ctx, "payment return with invalid signature")
		return nil, err
	}

	orderID, err := ParseTxnRef(values.Get(paramTxnRef))
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	responseCode := values.Get(paramResponseCode)
	if responseCode != responseCodeSuccess {
		s.logg.Info(ctx, "payment declined by gateway")
		if !s.policy.RetainUnpaid {
			if err := s.orders.DiscardUnpaid(ctx, orderID); err != nil {
				s.logg.Error(ctx, "discarding unpaid order", err)
			}
		}
		return &ReturnResult{
			Success:      false,
			OrderID:      orderID,
			ResponseCode: responseCode,
			Message:      fmt.Sprintf("payment failed with gateway code %s", responseCode),
		}, nil
	}

	if err := s.orders.MarkPaid(ctx, orderID); err != nil {
		// The IPN may have confirmed first; the buyer still sees success.
		if !errors.Is(err, orders.ErrAlreadyPaid) {
			return nil, err
		}
	}
	s.logg.Info(ctx, "payment confirmed via return url")

	return &ReturnResult{
		Success:      true,
		OrderID:      orderID,
		ResponseCode: responseCode,
		Message:      "payment confirmed",
	}, nil
}

// HandleIPN processes the gateway's server-to-server notification. It never
// returns an error: every outcome maps onto a response code the gateway
// understands, and the HTTP layer always answers 200.
func (s *Service) HandleIPN(ctx context.Context, values url.Values) IPNResponse {
	resp := s.handleIPN(ctx, values)
	s.metrics.IncIPNResponse(resp.RspCode)
	return resp
}

func (s *Service) handleIPN(ctx context.Context, values url.Values) IPNResponse {
	if len(values) == 0 {
		return IPNResponse{RspCode: RspCodeInvalidData, Message: "Invalid data"}
	}

	if err := s.gateway.VerifyParams(values); err != nil {
		s.logg.Warn(ctx, "ipn with invalid signature")
		return IPNResponse{RspCode: RspCodeInvalidSignature, Message: "Invalid Signature"}
	}

	orderID, err := ParseTxnRef(values.Get(paramTxnRef))
	if err != nil {
		return IPNResponse{RspCode: RspCodeInvalidData, Message: "Invalid TxnRef"}
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return IPNResponse{RspCode: RspCodeOrderNotFound, Message: "Order not found"}
		}
		s.logg.Error(ctx, "loading order for ipn", err)
		return IPNResponse{RspCode: RspCodeInvalidData, Message: "Invalid data"}
	}

	if order.Paid {
		return IPNResponse{RspCode: RspCodeAlreadyConfirmed, Message: "Order already confirmed"}
	}

	if values.Get(paramResponseCode) == responseCodeSuccess {
		if err := s.orders.MarkPaid(ctx, orderID); err != nil {
			if errors.Is(err, orders.ErrAlreadyPaid) {
				return IPNResponse{RspCode: RspCodeAlreadyConfirmed, Message: "Order already confirmed"}
			}
			s.logg.Error(ctx, "marking order paid from ipn", err)
			return IPNResponse{RspCode: RspCodeInvalidData, Message: "Invalid data"}
		}
		s.logg.Info(ctx, "payment confirmed via ipn")
	}

	// Declined payments still acknowledge with success so the gateway
	// does not retry the notification.
	return IPNResponse{RspCode: RspCodeSuccess, Message: "Confirm Success"}
}
