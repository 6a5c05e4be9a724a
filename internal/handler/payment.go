package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/ledger"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/middleware"
)

// PaymentHandler records payments, changes their status and serves the
// guest self-service and admin paths.
type PaymentHandler struct {
	Ledger *ledger.Engine
	Log    *logger.Logger
}

func NewPaymentHandler(eng *ledger.Engine, log *logger.Logger) *PaymentHandler {
	if eng == nil || log == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Ledger: eng, Log: log}
}

type recordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	MilestoneID *uint64         `json:"milestone_id"`
	Reference   string          `json:"reference"`
}

// Record handles POST /v1/bookings/:id/payments.  The payment is created
// pending; confirmation goes through UpdateStatus.
func (h *PaymentHandler) Record(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req recordPaymentRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Ledger.RecordPayment(c.Request().Context(), middleware.ActorFrom(c), ledger.RecordPaymentInput{
		BookingID:   id,
		Amount:      req.Amount,
		Method:      req.Method,
		MilestoneID: req.MilestoneID,
		Reference:   req.Reference,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/bookings/:id/payments.
func (h *PaymentHandler) List(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ps, err := h.Ledger.BookingPayments(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": ps})
}

// UpdateStatus handles PATCH /v1/payments/:id/status.  Admin only.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Ledger.SetPaymentStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// PayMilestone handles POST /v1/milestones/:id/pay.
func (h *PaymentHandler) PayMilestone(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req struct {
		Method    string `json:"method"`
		Reference string `json:"reference"`
	}
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Ledger.PayMilestone(c.Request().Context(), middleware.ActorFrom(c), ledger.PayMilestoneInput{
		MilestoneID: id,
		Method:      req.Method,
		Reference:   req.Reference,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}
