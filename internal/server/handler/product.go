package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ProductService defines the methods that the product handler requires from
// the service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type ProductService interface {
	Create(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	SetCrashSale(ctx context.Context, ids []string, activate bool) (domain.CrashSaleResult, error)
	History(ctx context.Context, id string) ([]domain.PricePoint, error)
	MarketStats(ctx context.Context) (domain.MarketStats, error)
	Quote(ctx context.Context, id string) (domain.PriceQuote, error)
	Quotes(ctx context.Context, ids []string) (map[string]domain.PriceQuote, error)
}

// ProductHandler serves the catalogue, admin product endpoints and market
// statistics.
type ProductHandler struct {
	products ProductService
	logger   *slog.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(products ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logHandler(logger, "product")}
}

type listProductsResponse struct {
	Products []domain.Product `json:"products"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListProducts returns a page of products with current prices.
// GET /api/products?limit=50&offset=0
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	products, err := h.products.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, listProductsResponse{Products: products, Limit: opts.Limit, Offset: opts.Offset})
}

// GetProduct returns one product.
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetHistory returns the price history of one product.
// GET /api/products/{id}/history
func (h *ProductHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.products.History(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get price history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": pathParam(r, "id"), "history": history})
}

// GetQuote returns the cached price of one product.
// GET /api/products/{id}/quote
func (h *ProductHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.products.Quote(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get quote")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GetQuotes returns cached prices for a comma separated id list.
// GET /api/quotes?ids=a,b,c
func (h *ProductHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids query parameter required")
		return
	}
	quotes, err := h.products.Quotes(r.Context(), ids)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to get quotes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

// CreateProduct lists a new product.
// POST /api/admin/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct applies a partial update.
// PUT /api/admin/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.products.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct removes a product.
// DELETE /api/admin/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

type crashSaleRequest struct {
	ProductIDs []string `json:"product_ids"`
	Activate   bool     `json:"activate"`
}

// CrashSale starts or ends a manual crash sale on several products.
// POST /api/admin/crash-sale
func (h *ProductHandler) CrashSale(w http.ResponseWriter, r *http.Request) {
	var req crashSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.products.SetCrashSale(r.Context(), req.ProductIDs, req.Activate)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update crash sale")
		return
	}
	action := "deactivated"
	if req.Activate {
		action = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Crash sale " + action,
		"updated": res.Updated,
		"missing": res.Missing,
	})
}

// MarketStats summarises the catalogue.
// GET /api/market/stats
func (h *ProductHandler) MarketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.products.MarketStats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to compute market stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
