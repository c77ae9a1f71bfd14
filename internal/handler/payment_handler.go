package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ascai/internal/model"
	"ascai/internal/service"
)

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest represents a new payment.
type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Type   string          `json:"type" validate:"required,oneof=membership event donation other"`
	Method string          `json:"method" validate:"required"`
	Notes  string          `json:"notes"`
}

// CompletePaymentRequest represents a payment settlement.
type CompletePaymentRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

// CreatePayment godoc
// @Summary Record a pending payment for the authenticated user
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePaymentRequest true "Payment data"
// @Success 201 {object} model.Payment
// @Failure 400 {object} errors.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	payment, err := h.paymentService.CreatePayment(c.Request().Context(), currentUser(c).ID, req.Amount, model.PaymentType(req.Type), req.Method, req.Notes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// GetPayment godoc
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} model.Payment
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.paymentService.GetPayment(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// ListPayments godoc
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Payment status"
// @Param type query string false "Payment type"
// @Success 200 {object} listResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	offset, limit := pagination(c)
	payments, total, err := h.paymentService.ListPayments(c.Request().Context(), model.PaymentStatus(c.QueryParam("status")), model.PaymentType(c.QueryParam("type")), offset, limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listResponse{Items: payments, Total: total})
}

// ListOwnPayments godoc
// @Summary List the authenticated user's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Payment
// @Router /payments/me [get]
func (h *PaymentHandler) ListOwnPayments(c echo.Context) error {
	payments, err := h.paymentService.ListUserPayments(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

// CompletePayment godoc
// @Summary Mark a payment as completed
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param request body CompletePaymentRequest true "Settlement data"
// @Success 200 {object} model.Payment
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id}/complete [post]
func (h *PaymentHandler) CompletePayment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req CompletePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	payment, err := h.paymentService.CompletePayment(c.Request().Context(), id, req.TransactionID, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// FailPayment godoc
// @Summary Mark a payment as failed
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} model.Payment
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id}/fail [post]
func (h *PaymentHandler) FailPayment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.paymentService.FailPayment(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// RefundPayment godoc
// @Summary Refund a completed payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} model.Payment
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.paymentService.RefundPayment(c.Request().Context(), id, currentUser(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, payment)
}
