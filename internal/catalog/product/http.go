// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package product

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phamanh/verano/internal/platform/apperr"
	requestutil "github.com/phamanh/verano/internal/platform/request"
	"github.com/phamanh/verano/internal/platform/respond"
	"github.com/phamanh/verano/internal/platform/validate"
	"github.com/phamanh/verano/pkg/pagination"
	"github.com/phamanh/verano/pkg/pointer"
)

// Handler implements the catalogue HTTP endpoints.
type Handler struct {
	productService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{productService: service}
}

// Routes returns a [chi.Router] configured with catalogue routes.
//
// adminOnly guards the mutating endpoints; browsing stays open to anonymous
// visitors.
//
// # Endpoints
//   - GET    /            : Paginated, filterable product listing.
//   - GET    /categories  : Distinct category names for filter widgets.
//   - GET    /{id}        : Single product detail.
//   - POST   /            : (admin) Create a product.
//   - PUT    /{id}        : (admin) Update a product.
//   - DELETE /{id}        : (admin) Deactivate a product.
func (handler *Handler) Routes(adminOnly func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/categories", handler.categories)
	router.Get("/{id}", handler.getByID)

	router.Group(func(guarded chi.Router) {
		guarded.Use(adminOnly)
		guarded.Post("/", handler.create)
		guarded.Put("/{id}", handler.update)
		guarded.Delete("/{id}", handler.deleteProduct)
	})

	return router
}

// list handles GET /api/v1/products requests.
//
// # Query Parameters
//   - category         : Case-insensitive category match.
//   - minPrice/maxPrice: Inclusive price bounds, in cents.
//   - search           : Free text matched against name and description.
//   - sort/order       : Whitelisted sort column and direction.
//   - page/limit       : Standard pagination parameters.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Filter Extraction ──────────────────────────────────────────────

	query := request.URL.Query()

	filter := Filter{
		Category:   query.Get("category"),
		Query:      query.Get("search"),
		Sort:       query.Get("sort"),
		Order:      query.Get("order"),
		ActiveOnly: true,
	}

	minPrice, err := parsePriceParam(query.Get("minPrice"), "minPrice")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	maxPrice, err := parsePriceParam(query.Get("maxPrice"), "maxPrice")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	filter.MinPrice = minPrice
	filter.MaxPrice = maxPrice

	// ── 2. Application Execution ──────────────────────────────────────────

	params := pagination.FromRequest(request)

	products, meta, err := handler.productService.List(request.Context(), filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, products, meta)
}

// categories handles GET /api/v1/products/categories requests.
func (handler *Handler) categories(writer http.ResponseWriter, request *http.Request) {
	categories, err := handler.productService.GetCategories(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"categories": categories})
}

// getByID handles GET /api/v1/products/{id} requests.
func (handler *Handler) getByID(writer http.ResponseWriter, request *http.Request) {
	item, err := handler.productService.GetByID(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, item)
}

// createProductRequest represents the JSON payload for product creation.
type createProductRequest struct {
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Details     map[string]any `json:"details"`
}

// create handles POST /api/v1/products requests (admin only).
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input createProductRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("name", input.Name).
		MaxLen("name", input.Name, 100).
		Required("category", input.Category).
		Required("description", input.Description).
		Custom("price", input.Price < 0, "Price cannot be negative")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.productService.Create(request.Context(), identity.UserID, CreateInput{
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Details:     input.Details,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

// updateProductRequest represents the JSON payload for product updates.
// Absent fields leave the stored value untouched.
type updateProductRequest struct {
	Name        *string        `json:"name"`
	Category    *string        `json:"category"`
	Description *string        `json:"description"`
	Price       *int64         `json:"price"`
	Details     map[string]any `json:"details"`
	IsActive    *bool          `json:"isActive"`
}

// update handles PUT /api/v1/products/{id} requests (admin only).
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input updateProductRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	if input.Name != nil {
		validator.Required("name", *input.Name).MaxLen("name", *input.Name, 100)
	}
	if input.Category != nil {
		validator.Required("category", *input.Category)
	}
	validator.Custom("price", pointer.Deref(input.Price) < 0, "Price cannot be negative")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	updated, err := handler.productService.Update(request.Context(), requestutil.ID(request, "id"), UpdateInput{
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Details:     input.Details,
		IsActive:    input.IsActive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

// deleteProduct handles DELETE /api/v1/products/{id} requests (admin only).
//
// Deletion is a soft deactivation; the confirmation message matches the
// storefront contract.
func (handler *Handler) deleteProduct(writer http.ResponseWriter, request *http.Request) {
	if err := handler.productService.Delete(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Product deleted successfully"})
}

// parsePriceParam parses an optional integer cents query parameter.
func parsePriceParam(raw, field string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return nil, apperr.ValidationError("Price filters must be non-negative integers", apperr.FieldError{
			Field:   field,
			Message: "must be a non-negative integer number of cents",
		})
	}
	return &value, nil
}
