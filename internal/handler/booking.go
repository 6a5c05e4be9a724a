package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/ledger"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/middleware"
)

// BookingHandler serves checkout and the booking's payment plan.  All
// methods assume JWTAuth has run.
type BookingHandler struct {
	Ledger *ledger.Engine
	Log    *logger.Logger
}

func NewBookingHandler(eng *ledger.Engine, log *logger.Logger) *BookingHandler {
	if eng == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: eng, Log: log}
}

type createBookingRequest struct {
	UserID       uint64          `json:"user_id"`
	Price        decimal.Decimal `json:"price"`
	BookingPrice decimal.Decimal `json:"booking_price"`
	PriceType    string          `json:"price_type"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
}

// Create handles POST /v1/bookings.  Dates use YYYY-MM-DD.  It returns 201
// with the booking and its generated milestones.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingRequest
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return fail(c, h.Log, err)
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return fail(c, h.Log, err)
	}
	b, ms, err := h.Ledger.CreateBooking(c.Request().Context(), middleware.ActorFrom(c), ledger.CreateBookingInput{
		UserID:       req.UserID,
		Price:        req.Price,
		BookingPrice: req.BookingPrice,
		PriceType:    req.PriceType,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b, "milestones": ms})
}

// Milestones handles GET /v1/bookings/:id/milestones.  The schedule is
// generated on first read.
func (h *BookingHandler) Milestones(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx := c.Request().Context()
	b, err := h.Ledger.Booking(ctx, middleware.ActorFrom(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ms, err := h.Ledger.EnsureSchedule(ctx, b.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     b.ID,
		"payment_status": b.PaymentStatus,
		"milestones":     ms,
	})
}

// Invoice handles GET /v1/bookings/:id/invoice.
func (h *BookingHandler) Invoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	inv, err := h.Ledger.Invoice(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, inv)
}
