package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"outingrewards/internal/delivery/http/helpers"
	"outingrewards/internal/delivery/http/middleware"
	"outingrewards/internal/domain"
)

type ParticipationController struct {
	Logger  *slog.Logger
	Service domain.ParticipationService
}

func NewParticipationController(logger *slog.Logger, svc domain.ParticipationService) *ParticipationController {
	return &ParticipationController{
		Logger:  logger,
		Service: svc,
	}
}

// ParticipationSuccessResponse is the success response envelope for single-participation endpoints.
type ParticipationSuccessResponse struct {
	Data  *domain.Participation `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListParticipationsResponse is the data payload for participation list endpoints.
type ListParticipationsResponse struct {
	Items      []*domain.Participation `json:"items"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

// ListParticipationsSuccessResponse is the success response envelope for participation list endpoints (200).
type ListParticipationsSuccessResponse struct {
	Data  ListParticipationsResponse `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// Join godoc
// @Summary Request to join an outing
// @Description Creates a PENDING participation for the authenticated user. Fails when the outing is full, when the caller organizes it, or when the caller already has a request for it.
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param outingID path string true "Outing ID (UUID)"
// @Success 201 {object} controllers.ParticipationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /outings/{outingID}/participations [post]
func (c *ParticipationController) Join(w http.ResponseWriter, r *http.Request) {
	outingID, ok := helpers.PathID(w, r, "outingID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	p, err := c.Service.Join(r.Context(), outingID, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, p)
}

// ListByOuting godoc
// @Summary List participation requests of an outing
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param outingID path string true "Outing ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListParticipationsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /outings/{outingID}/participations [get]
func (c *ParticipationController) ListByOuting(w http.ResponseWriter, r *http.Request) {
	outingID, ok := helpers.PathID(w, r, "outingID")
	if !ok {
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	list, err := c.Service.ListByOuting(r.Context(), outingID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	items, meta := helpers.Paginate(list, helpers.ParsePagination(r))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListParticipationsResponse{Items: items, Pagination: meta})
}

// ListMine godoc
// @Summary List the current user's participation requests
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListParticipationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participations/my [get]
func (c *ParticipationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	list, err := c.Service.ListByUser(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	items, meta := helpers.Paginate(list, helpers.ParsePagination(r))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListParticipationsResponse{Items: items, Pagination: meta})
}

// Approve godoc
// @Summary Approve a pending participation request
// @Description Only the outing organizer may approve. Fails with capacity_exceeded when the outing filled up meanwhile; the request then stays PENDING.
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param participationID path string true "Participation ID (UUID)"
// @Success 200 {object} controllers.ParticipationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded, invalid_state or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participations/{participationID}/approve [put]
func (c *ParticipationController) Approve(w http.ResponseWriter, r *http.Request) {
	c.resolve(w, r, c.Service.Approve)
}

// Reject godoc
// @Summary Reject a pending participation request
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param participationID path string true "Participation ID (UUID)"
// @Success 200 {object} controllers.ParticipationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_state or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participations/{participationID}/reject [put]
func (c *ParticipationController) Reject(w http.ResponseWriter, r *http.Request) {
	c.resolve(w, r, c.Service.Reject)
}

// Leave godoc
// @Summary Cancel the current user's participation
// @Description Deletes the participation. Leaving an approved participation frees its seat.
// @Tags participations
// @Produce json
// @Security BearerAuth
// @Param participationID path string true "Participation ID (UUID)"
// @Success 200 {object} controllers.ParticipationSuccessResponse "data is the participation as it was before deletion"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participations/{participationID} [delete]
func (c *ParticipationController) Leave(w http.ResponseWriter, r *http.Request) {
	c.resolve(w, r, c.Service.Leave)
}

func (c *ParticipationController) resolve(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, participationID, userID string) (*domain.Participation, error)) {
	participationID, ok := helpers.PathID(w, r, "participationID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	p, err := op(r.Context(), participationID, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}
