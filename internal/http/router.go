package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lancebill-backend/internal/handlers"
	"lancebill-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	clientHandler *handlers.ClientHandler,
	invoiceHandler *handlers.InvoiceHandler,
	paymentHandler *handlers.PaymentHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	dashboardHandler *handlers.DashboardHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Public route - client-facing invoice view tracking
	r.HandleFunc("/public/invoices/{id}/viewed", invoiceHandler.MarkViewed).Methods("POST")

	// Health and metrics
	r.HandleFunc("/health", healthHandler.Check).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Clients
	api.HandleFunc("/clients", clientHandler.Create).Methods("POST")
	api.HandleFunc("/clients", clientHandler.List).Methods("GET")
	api.HandleFunc("/clients/{id}", clientHandler.Get).Methods("GET")
	api.HandleFunc("/clients/{id}", clientHandler.Update).Methods("PUT")
	api.HandleFunc("/clients/{id}", clientHandler.Delete).Methods("DELETE")

	// Invoices
	api.HandleFunc("/invoices/preview", invoiceHandler.Preview).Methods("POST")
	api.HandleFunc("/invoices", invoiceHandler.Create).Methods("POST")
	api.HandleFunc("/invoices", invoiceHandler.List).Methods("GET")
	api.HandleFunc("/invoices/{id}", invoiceHandler.Get).Methods("GET")
	api.HandleFunc("/invoices/{id}", invoiceHandler.Update).Methods("PUT")
	api.HandleFunc("/invoices/{id}", invoiceHandler.Delete).Methods("DELETE")
	api.HandleFunc("/invoices/{id}/status", invoiceHandler.Transition).Methods("POST")

	// Payments
	api.HandleFunc("/invoices/{id}/payments", paymentHandler.Apply).Methods("POST")
	api.HandleFunc("/invoices/{id}/payments/pending", paymentHandler.CreatePending).Methods("POST")
	api.HandleFunc("/invoices/{id}/payments", paymentHandler.ListByInvoice).Methods("GET")
	api.HandleFunc("/payments/{id}", paymentHandler.Get).Methods("GET")
	api.HandleFunc("/payments/{id}", paymentHandler.Update).Methods("PUT")
	api.HandleFunc("/payments/{id}", paymentHandler.Delete).Methods("DELETE")
	api.HandleFunc("/payments/{id}/complete", paymentHandler.Complete).Methods("POST")
	api.HandleFunc("/payments/{id}/fail", paymentHandler.Fail).Methods("POST")

	// Subscription and plans
	api.HandleFunc("/subscription", subscriptionHandler.Get).Methods("GET")
	api.HandleFunc("/subscription/plan", subscriptionHandler.UpdatePlan).Methods("PUT")
	api.HandleFunc("/subscription/reserve/{resource}", subscriptionHandler.Reserve).Methods("POST")
	api.HandleFunc("/plans", subscriptionHandler.Plans).Methods("GET")

	// Dashboard
	api.HandleFunc("/dashboard/summary", dashboardHandler.Summary).Methods("GET")

	return r
}
