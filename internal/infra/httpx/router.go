package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/inkpress/bookstore/internal/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	// Server-side spans per request; extracts inbound traceparent
	// headers so storefront traces continue into this process.
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "http.server")
	})
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/books", handler.ListBooks)
		r.Get("/books/{id}", handler.GetBook)
		r.Post("/books/{id}/send-pdf", handler.SendFreePDF)

		r.Route("/cart/{clientID}", func(r chi.Router) {
			r.Get("/", handler.GetCart)
			r.Delete("/", handler.ClearCart)
			r.Post("/items", handler.AddCartItem)
			r.Put("/items/{bookID}", handler.UpdateCartItem)
			r.Delete("/items/{bookID}", handler.RemoveCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", handler.CreateCheckoutSession)
			r.Post("/confirm", handler.ConfirmPayment)
			r.Post("/webhook", handler.PaymentWebhook)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/books", handler.CreateBook)
			r.Patch("/books/{id}", handler.UpdateBook)
			r.Delete("/books/{id}", handler.DeleteBook)

			r.Get("/orders", handler.ListOrders)
			r.Get("/orders/{id}", handler.GetOrder)
			r.Get("/orders/{id}/fulfillment", handler.GetOrderFulfillment)
			r.Put("/orders/{id}/status", handler.UpdateOrderStatus)

			r.Get("/finance", handler.FinanceReport)
			r.Put("/finance/tax-rate", handler.SetTaxRate)
		})
	})

	return r
}
