// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler maps the HTTP surface onto the catalog service: NotFound
// becomes 404, a duplicate SKU 409, validation failures 400 and anything
// else 500.
type Handler struct {
	service Service
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewHandler creates a new catalog HTTP handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// Register mounts the catalog routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/available", h.handleAvailable)
		r.Get("/{id}", h.handleGet)
		r.With(h.writeLimit).Post("/", h.handleCreate)
		r.With(h.writeLimit).Put("/{id}", h.handleUpdate)
		r.With(h.writeLimit).Delete("/{id}", h.handleDelete)
	})
}

// writeLimit throttles mutating requests.
func (h *Handler) writeLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// itemRequest is the wire shape of create and update payloads.
type itemRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Category    string           `json:"category"`
	SKU         string           `json:"sku"`
	ImageURL    string           `json:"image_url"`
	Status      string           `json:"status"`
}

// validate returns field-level messages, empty when the payload is valid.
func (req *itemRequest) validate() map[string]string {
	problems := make(map[string]string)

	if req.Name == "" {
		problems["name"] = "Name is required and cannot be empty"
	} else if len(req.Name) < 3 || len(req.Name) > 100 {
		problems["name"] = "Name must be between 3 and 100 characters"
	}
	if len(req.Description) > 500 {
		problems["description"] = "Description cannot exceed 500 characters"
	}
	if req.Price == nil {
		problems["price"] = "Price is required"
	} else {
		if !req.Price.IsPositive() {
			problems["price"] = "Price must be greater than 0"
		} else if req.Price.Exponent() < -2 && !req.Price.Equal(req.Price.Round(2)) {
			problems["price"] = "Price must have at most 2 decimal places"
		}
	}
	if req.Quantity == nil {
		problems["quantity"] = "Quantity is required"
	} else if *req.Quantity < 0 {
		problems["quantity"] = "Quantity cannot be negative"
	}
	if len(req.Category) > 50 {
		problems["category"] = "Category cannot exceed 50 characters"
	}
	if len(req.SKU) > 50 {
		problems["sku"] = "SKU cannot exceed 50 characters"
	}
	if len(req.ImageURL) > 500 {
		problems["image_url"] = "Image URL cannot exceed 500 characters"
	}
	if req.Status != "" && !ValidStatus(Status(req.Status)) {
		problems["status"] = "Status must be one of AVAILABLE, OUT_OF_STOCK, DISCONTINUED"
	}

	return problems
}

// toInput converts a validated request into the service input document.
func (req *itemRequest) toInput() ItemInput {
	input := ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Category:    req.Category,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
	}
	if req.Price != nil {
		input.Price = *req.Price
	}
	if req.Status != "" {
		status := Status(req.Status)
		input.Status = &status
	}
	return input
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		h.writeError(w, r, http.StatusBadRequest, "validation failed", problems)
		return
	}

	item, err := h.service.CreateItem(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		h.writeError(w, r, http.StatusBadRequest, "validation failed", problems)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.AvailableItems(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if items == nil {
		items = []*Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleList serves both plain listing and search. Query params: q, sku,
// name, category, status, minPrice, maxPrice, sortBy, page, size. At most
// one filter applies, by the service's precedence order.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := SearchQuery{
		Query:    params.Get("q"),
		SKU:      params.Get("sku"),
		Name:     params.Get("name"),
		Category: params.Get("category"),
	}

	if raw := params.Get("status"); raw != "" {
		status := Status(raw)
		if !ValidStatus(status) {
			h.writeError(w, r, http.StatusBadRequest, "invalid status: "+raw, nil)
			return
		}
		q.Status = status
	}

	minPrice, ok := h.priceParam(w, r, params.Get("minPrice"))
	if !ok {
		return
	}
	maxPrice, ok := h.priceParam(w, r, params.Get("maxPrice"))
	if !ok {
		return
	}
	q.MinPrice = minPrice
	q.MaxPrice = maxPrice

	req := PageRequest{
		Number: intParam(params.Get("page"), 0),
		Size:   intParam(params.Get("size"), DefaultPageSize),
	}

	page, err := h.service.SearchItems(r.Context(), q, req, parseSort(params.Get("sortBy")))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.ItemCount(r.Context())
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "DOWN",
			"service": "catalog",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "UP",
		"service":    "catalog",
		"totalItems": total,
	})
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *NotFoundError
	var duplicate *DuplicateSKUError

	switch {
	case errors.As(err, &notFound):
		h.writeError(w, r, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &duplicate):
		h.writeError(w, r, http.StatusConflict, duplicate.Error(), nil)
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "internal server error", nil)
	}
}

// errorResponse is the wire shape of every error payload.
type errorResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string, fields map[string]string) {
	writeJSON(w, status, errorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Errors:    fields,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// priceParam parses an optional decimal query param, answering 400 on
// garbage. The bool result is false when the response has been written.
func (h *Handler) priceParam(w http.ResponseWriter, r *http.Request, raw string) (*decimal.Decimal, bool) {
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid price: "+raw, nil)
		return nil, false
	}
	return &d, true
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func parseSort(raw string) Sort {
	switch raw {
	case "price-asc":
		return SortPriceAsc
	case "price-desc":
		return SortPriceDesc
	case "name-asc":
		return SortNameAsc
	case "name-desc":
		return SortNameDesc
	case "newest":
		return SortNewest
	default:
		return SortDefault
	}
}
