package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	appConfig config.AppConfig,
	JWTService jwt.Service,
	payrollHandler PayrollHandler,
	notificationHandler NotificationHandler,
	webhookHandler WebhookHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appConfig.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-payroll"),
		slog.String("version", appConfig.Version),
		slog.String("env", appConfig.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Public, verified by callback token
		r.Post("/webhooks/xendit/payout", webhookHandler.HandleXenditPayout)

		// SSE authenticates with a stream token in the query string
		r.Get("/payroll/events", notificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/overtime-policy", payrollHandler.GetOvertimePolicy)
				r.Post("/events/token", notificationHandler.GetSSEToken)

				r.Route("/my", func(r chi.Router) {
					r.Use(middleware.RequireEmployee)
					r.Get("/records", payrollHandler.ListMyPayrollRecords)
					r.Get("/records/{id}/payslip", payrollHandler.GetMyPayslip)
				})

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)

					r.Post("/generate", payrollHandler.GeneratePayroll)
					r.Get("/statistics", payrollHandler.GetStatistics)

					r.Route("/records", func(r chi.Router) {
						r.Get("/", payrollHandler.ListPayrollRecords)

						r.Route("/{id}", func(r chi.Router) {
							r.Get("/", payrollHandler.GetPayrollRecord)
							r.Patch("/", payrollHandler.UpdatePayrollRecord)
							r.Get("/payslip", payrollHandler.GetPayslip)
							r.Get("/working-hours", payrollHandler.ValidateWorkingHours)
							r.Post("/overtime-approval", payrollHandler.ApproveOvertime)
							r.Post("/sign-off", payrollHandler.SignOff)
							r.Post("/payment", payrollHandler.SubmitPayment)
							r.Put("/payment-status", payrollHandler.UpdatePaymentStatus)
						})
					})

					r.Route("/payments", func(r chi.Router) {
						r.Post("/batch", payrollHandler.ProcessPayments)
						r.Post("/reconcile", payrollHandler.ReconcilePayments)
					})
				})
			})
		})
	})
	return r
}
