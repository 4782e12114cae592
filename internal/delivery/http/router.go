package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"outingrewards/internal/delivery/http/controllers"
	"outingrewards/internal/delivery/http/middleware"
	"outingrewards/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Every API route requires a Bearer token; only the Swagger UI is public.
func NewRouter(
	participations *controllers.ParticipationController,
	vouchers *controllers.VoucherController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Participations
	mux.HandleFunc("POST /outings/{outingID}/participations", auth(participations.Join))
	mux.HandleFunc("GET /outings/{outingID}/participations", auth(participations.ListByOuting))
	mux.HandleFunc("GET /participations/my", auth(participations.ListMine))
	mux.HandleFunc("PUT /participations/{participationID}/approve", auth(participations.Approve))
	mux.HandleFunc("PUT /participations/{participationID}/reject", auth(participations.Reject))
	mux.HandleFunc("DELETE /participations/{participationID}", auth(participations.Leave))

	// Vouchers
	mux.HandleFunc("GET /vouchers/my", auth(vouchers.ListMine))
	mux.HandleFunc("GET /vouchers/my/active", auth(vouchers.ListMyActive))
	mux.HandleFunc("GET /vouchers/{voucherID}", auth(vouchers.Get))
	mux.HandleFunc("POST /vouchers/redeem/{qrCode}", auth(vouchers.Redeem))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
