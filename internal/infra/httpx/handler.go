package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/bookstore/internal/checkout"
	"github.com/inkpress/bookstore/internal/core/ports"
	"github.com/inkpress/bookstore/internal/finance"
	"github.com/inkpress/bookstore/internal/fulfillment/flog"
	"github.com/inkpress/bookstore/internal/infra/adapters/stripegw"
	"github.com/inkpress/bookstore/internal/infra/httpx/middlewares"
	"github.com/inkpress/bookstore/internal/orders"
)

// maxUploadBytes bounds the multipart memory buffer for admin uploads.
const maxUploadBytes = 64 << 20

// Fulfiller processes a paid checkout session end to end.
type Fulfiller interface {
	Fulfill(ctx context.Context, sessionID string) error
}

// FulfillmentLogReader exposes the latest fulfillment state of an order
// for the admin dashboard.
type FulfillmentLogReader interface {
	GetLatest(ctx context.Context, orderID string) (*flog.Entry, error)
}

// Handler handles all storefront and admin HTTP requests.
type Handler struct {
	catalog   ports.CatalogService
	cart      ports.CartService
	checkout  ports.CheckoutService
	orders    ports.OrderService
	finance   ports.FinanceService
	verifier  ports.WebhookVerifier
	fulfiller Fulfiller
	flogs     FulfillmentLogReader
}

func NewHandler(
	catalog ports.CatalogService,
	cart ports.CartService,
	co ports.CheckoutService,
	os ports.OrderService,
	fin ports.FinanceService,
	verifier ports.WebhookVerifier,
	fulfiller Fulfiller,
	flogs FulfillmentLogReader,
) *Handler {
	return &Handler{
		catalog:   catalog,
		cart:      cart,
		checkout:  co,
		orders:    os,
		finance:   fin,
		verifier:  verifier,
		fulfiller: fulfiller,
		flogs:     flogs,
	}
}

// --- Catalog ---

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ports.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, "book_not_found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "catalog_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) SendFreePDF(w http.ResponseWriter, r *http.Request) {
	var req SendPDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email_required", "")
		return
	}

	err := h.catalog.SendFreePDF(r.Context(), chi.URLParam(r, "id"), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	case errors.Is(err, ports.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "")
	default:
		writeError(w, http.StatusBadRequest, "send_pdf_failed", err.Error())
	}
}

// --- Cart ---

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Get(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id_required", "")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.cart.AddBook(r.Context(), chi.URLParam(r, "clientID"), req.BookID, req.Quantity)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, mapCartToResponse(c))
	case errors.Is(err, ports.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "")
	default:
		writeError(w, http.StatusBadRequest, "cart_error", err.Error())
	}
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	c, err := h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "clientID"), chi.URLParam(r, "bookID"), req.Quantity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.RemoveBook(r.Context(), chi.URLParam(r, "clientID"), chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), chi.URLParam(r, "clientID")); err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Checkout ---

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	sessionID, err := h.checkout.CreateSession(r.Context(), ports.CheckoutRequest{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Items:      req.Items,
	})
	if err != nil {
		var invalid *checkout.InvalidItemError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "invalid_item", invalid.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "checkout_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, CheckoutSessionResponse{SessionID: sessionID})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id_required", "")
		return
	}

	conf, err := h.checkout.ConfirmPayment(r.Context(), req.SessionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ConfirmPaymentResponse{Email: conf.Email, PaymentRef: conf.PaymentRef})
	case errors.Is(err, ports.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	default:
		writeError(w, http.StatusBadGateway, "confirm_error", err.Error())
	}
}

// PaymentWebhook receives provider notifications. The signature is
// verified against the raw body before anything is acted on.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_body_failed", "")
		return
	}

	event, err := h.verifier.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_signature", "")
		return
	}

	if event.Type == stripegw.EventCheckoutCompleted && event.SessionID != "" {
		requestID, _ := r.Context().Value(middlewares.ContextKeyRequestID).(string)
		// Detach from the request context so fulfillment survives the
		// provider's webhook timeout, while keeping tracing metadata.
		fulfillCtx := context.WithoutCancel(r.Context())
		go func() {
			if err := h.fulfiller.Fulfill(fulfillCtx, event.SessionID); err != nil {
				slog.ErrorContext(fulfillCtx, "webhook fulfillment failed",
					"request_id", requestID, "session_id", event.SessionID, "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

// --- Admin: catalog ---

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_price", err.Error())
		return
	}

	input := ports.CreateBookInput{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Bio:         r.FormValue("bio"),
		Description: r.FormValue("description"),
		Price:       price,
		IsFree:      r.FormValue("isFree") == "true",
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if upload, closer, err := formUpload(r, "cover"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cover", err.Error())
		return
	} else if upload != nil {
		input.Cover = upload
		closers = append(closers, closer)
	}
	if upload, closer, err := formUpload(r, "pdf"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pdf", err.Error())
		return
	} else if upload != nil {
		input.PDF = upload
		closers = append(closers, closer)
	}

	book, err := h.catalog.Create(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "create_book_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	// Only fields present in the form become part of the patch.
	input := ports.UpdateBookInput{
		Title:       formString(r, "title"),
		Author:      formString(r, "author"),
		Bio:         formString(r, "bio"),
		Description: formString(r, "description"),
	}
	if raw := formString(r, "price"); raw != nil {
		price, err := parsePrice(*raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_price", err.Error())
			return
		}
		input.Price = &price
	}
	if raw := formString(r, "isFree"); raw != nil {
		isFree := *raw == "true"
		input.IsFree = &isFree
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if upload, closer, err := formUpload(r, "cover"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cover", err.Error())
		return
	} else if upload != nil {
		input.Cover = upload
		closers = append(closers, closer)
	}
	if upload, closer, err := formUpload(r, "pdf"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pdf", err.Error())
		return
	} else if upload != nil {
		input.PDF = upload
		closers = append(closers, closer)
	}

	book, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), input)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, book)
	case errors.Is(err, ports.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "")
	default:
		writeError(w, http.StatusBadRequest, "update_book_failed", err.Error())
	}
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ports.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "")
	default:
		writeError(w, http.StatusInternalServerError, "delete_book_failed", err.Error())
	}
}

// --- Admin: orders ---

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "true"

	var (
		result any
		err    error
	)
	if archived {
		result, err = h.orders.ListArchived(r.Context())
	} else {
		result, err = h.orders.ListActive(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_orders_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, order)
	case errors.Is(err, ports.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	default:
		writeError(w, http.StatusInternalServerError, "get_order_failed", err.Error())
	}
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Revision)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
	case errors.Is(err, orders.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, ports.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	case errors.Is(err, ports.ErrRevisionConflict):
		writeError(w, http.StatusConflict, "revision_conflict", "order changed since it was read; refetch and retry")
	default:
		writeError(w, http.StatusInternalServerError, "update_status_failed", err.Error())
	}
}

// GetOrderFulfillment returns the latest fulfillment log row for an
// order, so an operator can see where a run stalled and grab the trace.
func (h *Handler) GetOrderFulfillment(w http.ResponseWriter, r *http.Request) {
	entry, err := h.flogs.GetLatest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "fulfillment_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FulfillmentStatusResponse{
		OrderID:       entry.OrderID,
		Status:        string(entry.Status),
		CurrentStep:   entry.CurrentStep,
		ErrorMessages: json.RawMessage(entry.ErrorMessages),
		TraceID:       entry.TraceID,
		UpdatedAt:     entry.UpdatedAt,
	})
}

// --- Admin: finance ---

func (h *Handler) FinanceReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.finance.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "finance_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) SetTaxRate(w http.ResponseWriter, r *http.Request) {
	var req SetTaxRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := h.finance.SetTaxRate(req.TaxRate); err != nil {
		if errors.Is(err, finance.ErrTaxRateOutOfRange) {
			writeError(w, http.StatusBadRequest, "tax_rate_out_of_range", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "set_tax_rate_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"taxRate": h.finance.TaxRate()})
}

// --- helpers ---

func parsePrice(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// formString returns nil when the field was absent from the form,
// distinguishing "not provided" from "set to empty".
func formString(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// formUpload extracts an optional file field. The returned closer must
// be closed after the upload has been consumed.
func formUpload(r *http.Request, field string) (*ports.Upload, io.Closer, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &ports.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        file,
	}, file, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
