package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	adminMiddleware := standardMiddleware.Append(app.requireAdmin)

	mux := pat.New()

	mux.Get("/health", standardMiddleware.ThenFunc(app.health))

	// Admin auth
	mux.Post("/admin/sign_in", standardMiddleware.ThenFunc(app.authHandler.SignIn))

	// Billing
	mux.Post("/group", adminMiddleware.ThenFunc(app.billingHandler.SetupGroup))
	mux.Post("/invoice/ensure", adminMiddleware.ThenFunc(app.billingHandler.EnsureInvoice))
	mux.Get("/invoice/status", adminMiddleware.ThenFunc(app.billingHandler.InvoiceStatus))
	mux.Post("/invoice/:id/excuse", adminMiddleware.ThenFunc(app.billingHandler.ExcuseInvoice))

	// Payments
	mux.Post("/payments/start", standardMiddleware.ThenFunc(app.paymentHandler.StartPayment))
	mux.Post("/payments/webhook", standardMiddleware.ThenFunc(app.paymentHandler.Webhook))

	return mux
}
