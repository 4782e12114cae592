package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"outingrewards/internal/delivery/http/helpers"
	"outingrewards/internal/delivery/http/middleware"
	"outingrewards/internal/domain"
)

type VoucherController struct {
	Logger  *slog.Logger
	Service domain.VoucherService
}

func NewVoucherController(logger *slog.Logger, svc domain.VoucherService) *VoucherController {
	return &VoucherController{
		Logger:  logger,
		Service: svc,
	}
}

// VoucherSuccessResponse is the success response envelope for single-voucher endpoints.
type VoucherSuccessResponse struct {
	Data  *domain.Voucher   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListVouchersResponse is the data payload for voucher list endpoints.
type ListVouchersResponse struct {
	Items      []*domain.Voucher      `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListVouchersSuccessResponse is the success response envelope for voucher list endpoints (200).
type ListVouchersSuccessResponse struct {
	Data  ListVouchersResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ListMine godoc
// @Summary List the current user's vouchers
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListVouchersSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vouchers/my [get]
func (c *VoucherController) ListMine(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, c.Service.ListForUser)
}

// ListMyActive godoc
// @Summary List the current user's redeemable vouchers
// @Description Returns ACTIVE vouchers that have not expired yet.
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListVouchersSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vouchers/my/active [get]
func (c *VoucherController) ListMyActive(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, c.Service.ListActiveForUser)
}

// Get godoc
// @Summary Get one of the current user's vouchers
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param voucherID path string true "Voucher ID (UUID)"
// @Success 200 {object} controllers.VoucherSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vouchers/{voucherID} [get]
func (c *VoucherController) Get(w http.ResponseWriter, r *http.Request) {
	voucherID, ok := helpers.PathID(w, r, "voucherID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	v, err := c.Service.Get(r.Context(), voucherID, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, v)
}

// Redeem godoc
// @Summary Redeem a voucher by its QR code
// @Description The caller must be the business that owns the voucher's reward. A voucher can be redeemed once, before it expires.
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param qrCode path string true "Voucher QR code (VOUCHER-XXXXXXXX)"
// @Success 200 {object} controllers.VoucherSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or redemption_failed"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vouchers/redeem/{qrCode} [post]
func (c *VoucherController) Redeem(w http.ResponseWriter, r *http.Request) {
	qrCode := strings.TrimSpace(r.PathValue("qrCode"))
	if qrCode == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing qrCode")
		return
	}
	businessID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	v, err := c.Service.Redeem(r.Context(), qrCode, businessID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, v)
}

func (c *VoucherController) list(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID string) ([]*domain.Voucher, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	list, err := op(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	items, meta := helpers.Paginate(list, helpers.ParsePagination(r))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListVouchersResponse{Items: items, Pagination: meta})
}
