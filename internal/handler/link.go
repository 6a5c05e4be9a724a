package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/ledger"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/middleware"
)

// LinkHandler issues payment links to booking owners and serves the public
// pay page behind them.
type LinkHandler struct {
	Ledger *ledger.Engine
	Log    *logger.Logger
}

func NewLinkHandler(eng *ledger.Engine, log *logger.Logger) *LinkHandler {
	if eng == nil || log == nil {
		panic("nil dependency passed to NewLinkHandler")
	}
	return &LinkHandler{Ledger: eng, Log: log}
}

// Issue handles POST /v1/milestones/:id/links.  An omitted amount means
// the milestone amount.
func (h *LinkHandler) Issue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return fail(c, h.Log, err)
		}
	}
	link, err := h.Ledger.IssuePaymentLink(c.Request().Context(), middleware.ActorFrom(c), ledger.IssueLinkInput{
		MilestoneID: id,
		Amount:      req.Amount,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, link)
}

// List handles GET /v1/milestones/:id/links.
func (h *LinkHandler) List(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	links, err := h.Ledger.MilestoneLinks(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"links": links})
}

// Resolve handles GET /v1/pay/:uid.  No authentication: the link id is
// the credential.  Stale links answer 410 so the page can say "expired"
// rather than "invalid".
func (h *LinkHandler) Resolve(c echo.Context) error {
	view, err := h.Ledger.ResolvePaymentLink(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Submit handles POST /v1/pay/:uid.  It records a pending payment for the
// link amount; the link stays pending until the payment is confirmed.
func (h *LinkHandler) Submit(c echo.Context) error {
	var req struct {
		Method    string `json:"method"`
		Reference string `json:"reference"`
	}
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Ledger.SubmitViaLink(c.Request().Context(), ledger.SubmitLinkInput{
		UniqueID:  c.Param("uid"),
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusAccepted, p)
}
