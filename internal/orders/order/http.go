// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/phamanh/verano/internal/platform/request"
	"github.com/phamanh/verano/internal/platform/respond"
	"github.com/phamanh/verano/internal/platform/validate"
	"github.com/phamanh/verano/pkg/pagination"
)

// Handler implements the customer-facing order HTTP endpoints.
type Handler struct {
	orderService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{orderService: service}
}

// Routes returns a [chi.Router] configured with order routes.
//
// The whole subtree requires an authenticated session; the server mounts it
// behind the session guard.
//
// # Endpoints
//   - GET /             : The caller's own orders, paginated.
//   - GET /{id}         : Single order detail (owner or admin).
//   - POST /            : Place a new order.
//   - PUT /{id}/cancel  : Cancel an order (owner or admin).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{id}", handler.getByID)
	router.Post("/", handler.create)
	router.Put("/{id}/cancel", handler.cancel)

	return router
}

// list handles GET /api/v1/orders requests.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	status := Status(request.URL.Query().Get("status"))
	params := pagination.FromRequest(request)

	orders, meta, err := handler.orderService.ListForUser(request.Context(), identity.UserID, status, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, orders, meta)
}

// getByID handles GET /api/v1/orders/{id} requests.
func (handler *Handler) getByID(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.orderService.GetByID(request.Context(), identity, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

// createOrderRequest represents the JSON checkout payload.
type createOrderRequest struct {
	Items          []createOrderItem `json:"items"`
	PaymentMethod  string            `json:"paymentMethod"`
	PaymentDetails map[string]any    `json:"paymentDetails"`
	BillingAddress *BillingAddress   `json:"billingAddress"`
}

type createOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// create handles POST /api/v1/orders requests.
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createOrderRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Custom("items", len(input.Items) == 0, "Order must contain at least one item").
		Required("paymentMethod", input.PaymentMethod)
	for _, item := range input.Items {
		validator.
			Custom("items.productId", item.ProductID == "", "Product ID is required").
			Custom("items.quantity", item.Quantity < 0, "Quantity must be at least 1")
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	items := make([]ItemInput, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	created, err := handler.orderService.Create(request.Context(), identity.UserID, CreateInput{
		Items:          items,
		PaymentMethod:  input.PaymentMethod,
		PaymentDetails: input.PaymentDetails,
		BillingAddress: input.BillingAddress,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

// cancel handles PUT /api/v1/orders/{id}/cancel requests.
func (handler *Handler) cancel(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	cancelled, err := handler.orderService.Cancel(request.Context(), identity, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, cancelled)
}
