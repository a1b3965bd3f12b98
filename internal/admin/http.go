// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phamanh/verano/internal/orders/order"
	requestutil "github.com/phamanh/verano/internal/platform/request"
	"github.com/phamanh/verano/internal/platform/respond"
	"github.com/phamanh/verano/internal/platform/validate"
	"github.com/phamanh/verano/pkg/pagination"
)

// Handler implements the back-office HTTP endpoints.
type Handler struct {
	adminService *Service
	orderService *order.Service
}

// NewHandler constructs a new [Handler] with its service dependencies.
func NewHandler(adminService *Service, orderService *order.Service) *Handler {
	return &Handler{adminService: adminService, orderService: orderService}
}

// Routes returns a [chi.Router] configured with back-office routes.
//
// The server mounts this subtree behind the admin role guard; nothing here
// re-checks the role.
//
// # Endpoints
//   - GET /stats/users  : Sign-up dashboard report.
//   - GET /stats/orders : Order volume and revenue report.
//   - GET /users        : Customer directory with purchase history.
//   - PUT /orders/{id}  : Force an order lifecycle transition.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/stats/users", handler.userStats)
	router.Get("/stats/orders", handler.orderStats)
	router.Get("/users", handler.listCustomers)
	router.Put("/orders/{id}", handler.updateOrderStatus)

	return router
}

// userStats handles GET /api/v1/admin/stats/users requests.
func (handler *Handler) userStats(writer http.ResponseWriter, request *http.Request) {
	report, err := handler.adminService.GetUserStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, report)
}

// orderStats handles GET /api/v1/admin/stats/orders requests.
func (handler *Handler) orderStats(writer http.ResponseWriter, request *http.Request) {
	report, err := handler.adminService.GetOrderStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, report)
}

// listCustomers handles GET /api/v1/admin/users requests.
func (handler *Handler) listCustomers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	rows, meta, err := handler.adminService.ListCustomers(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, rows, meta)
}

// updateOrderStatusRequest represents the JSON payload for a forced
// lifecycle transition.
type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// updateOrderStatus handles PUT /api/v1/admin/orders/{id} requests.
func (handler *Handler) updateOrderStatus(writer http.ResponseWriter, request *http.Request) {
	var input updateOrderStatusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("status", input.Status).
		OneOf("status", input.Status, order.Statuses()...)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.orderService.UpdateStatus(request.Context(), requestutil.ID(request, "id"), order.Status(input.Status))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}
