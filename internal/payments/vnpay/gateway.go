package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hoangkimbao/garage-backend/pkg/config"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

const (
	paramVersion        = "vnp_Version"
	paramCommand        = "vnp_Command"
	paramTmnCode        = "vnp_TmnCode"
	paramAmount         = "vnp_Amount"
	paramCurrCode       = "vnp_CurrCode"
	paramTxnRef         = "vnp_TxnRef"
	paramOrderInfo      = "vnp_OrderInfo"
	paramOrderType      = "vnp_OrderType"
	paramLocale         = "vnp_Locale"
	paramReturnURL      = "vnp_ReturnUrl"
	paramIPAddr         = "vnp_IpAddr"
	paramCreateDate     = "vnp_CreateDate"
	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
	paramResponseCode   = "vnp_ResponseCode"

	protocolVersion = "2.1.0"
	commandPay      = "pay"
	currencyVND     = "VND"
	orderTypeOther  = "other"

	txnRefTimeLayout = "20060102150405"
)

// Gateway builds signed payment URLs and verifies gateway callbacks for the
// VNPay merchant integration.
type Gateway struct {
	cfg config.VNPayConfig
	now func() time.Time
}

// NewGateway constructs a gateway adapter from merchant credentials.
func NewGateway(cfg config.VNPayConfig) (*Gateway, error) {
	if cfg.TmnCode == "" {
		return nil, fmt.Errorf("vnpay tmn code is required")
	}
	if cfg.HashSecret == "" {
		return nil, fmt.Errorf("vnpay hash secret is required")
	}
	if cfg.PaymentURL == "" {
		return nil, fmt.Errorf("vnpay payment url is required")
	}
	if cfg.ReturnURL == "" {
		return nil, fmt.Errorf("vnpay return url is required")
	}
	return &Gateway{cfg: cfg, now: time.Now}, nil
}

// PaymentRequest carries the order fields needed to build a payment URL.
type PaymentRequest struct {
	OrderID  int64
	Total    decimal.Decimal
	ClientIP string
}

// BuildPaymentURL returns the full redirect URL for the hosted payment page.
// The amount is the order total in VND multiplied by 100, per the gateway
// contract. The transaction reference embeds the order id and a timestamp so
// it stays unique within the day while remaining parseable back to the order.
func (g *Gateway) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.OrderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if req.Total.IsNegative() || req.Total.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	now := g.now().UTC()
	amount := req.Total.Mul(decimal.NewFromInt(100)).IntPart()

	params := map[string]string{
		paramVersion:    protocolVersion,
		paramCommand:    commandPay,
		paramTmnCode:    g.cfg.TmnCode,
		paramAmount:     strconv.FormatInt(amount, 10),
		paramCurrCode:   currencyVND,
		paramTxnRef:     FormatTxnRef(req.OrderID, now),
		paramOrderInfo:  fmt.Sprintf("Thanh toan don hang %d", req.OrderID),
		paramOrderType:  orderTypeOther,
		paramLocale:     g.cfg.Locale,
		paramReturnURL:  g.cfg.ReturnURL,
		paramIPAddr:     req.ClientIP,
		paramCreateDate: now.Format(txnRefTimeLayout),
	}

	hash := g.sign(params)

	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}
	query.Set(paramSecureHash, hash)

	return g.cfg.PaymentURL + "?" + query.Encode(), nil
}

// VerifyParams checks the HMAC-SHA512 signature on a gateway callback. The
// signature parameters are stripped before the digest is recomputed over the
// remaining sorted pairs. Comparison is constant time.
func (g *Gateway) VerifyParams(values url.Values) error {
	provided := values.Get(paramSecureHash)
	if provided == "" {
		return pkgerrors.New(pkgerrors.CodeSignature, "missing signature")
	}

	params := make(map[string]string, len(values))
	for key := range values {
		if key == paramSecureHash || key == paramSecureHashType {
			continue
		}
		params[key] = values.Get(key)
	}

	expected := g.sign(params)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return pkgerrors.New(pkgerrors.CodeSignature, "signature mismatch")
	}
	return nil
}

// sign builds the canonical "key=value&" string over the sorted parameter
// names, with each value query-escaped, and returns the hex HMAC-SHA512.
func (g *Gateway) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+url.QueryEscape(params[key]))
	}
	hashData := strings.Join(pairs, "&")

	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(hashData))
	return hex.EncodeToString(mac.Sum(nil))
}

// FormatTxnRef renders the transaction reference "<order id>_<YYYYMMDDHHMMSS>".
func FormatTxnRef(orderID int64, at time.Time) string {
	return fmt.Sprintf("%d_%s", orderID, at.Format(txnRefTimeLayout))
}

// ParseTxnRef extracts the order id from a transaction reference. Everything
// after the first underscore is ignored.
func ParseTxnRef(ref string) (int64, error) {
	if ref == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is empty")
	}
	idPart, _, _ := strings.Cut(ref, "_")
	orderID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || orderID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction reference").
			WithDetails(map[string]any{"txn_ref": ref})
	}
	return orderID, nil
}
