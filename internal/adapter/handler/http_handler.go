package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/pantry/internal/adapter/handler/rpc"
	"github.com/rl1809/pantry/internal/core/domain"
)

const (
	UserIDHeader         = "X-User-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
)

type userIDKey struct{}

type HTTPHandler struct {
	inventory Inventory
	log       logrus.FieldLogger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(inventory Inventory, log logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, log: log}
}

// Routes mounts every endpoint under /api.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Route("/products/{productID}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Patch("/quantity", h.SetQuantity)
				r.Post("/purchases", h.Purchase)
				r.Get("/batches", h.ListBatches)
				r.Post("/batches", h.AddBatch)
				r.Put("/batches/{batchID}", h.UpdateBatch)
				r.Delete("/batches/{batchID}", h.DeleteBatch)
			})
			r.Get("/shopping-list", h.ShoppingList)
		})
	})
	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.FromProducts(products))
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req rpc.CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := req.Domain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.inventory.CreateProduct(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rpc.FromProduct(*product))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.inventory.GetProduct(r.Context(), userID(r), chi.URLParam(r, "productID"))
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req rpc.UpdateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.inventory.UpdateProduct(r.Context(), userID(r), chi.URLParam(r, "productID"), req.Domain())
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteProduct(r.Context(), userID(r), chi.URLParam(r, "productID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.DeleteResponse{Message: "product deleted"})
}

func (h *HTTPHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req rpc.SetTotalQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	quantity, err := req.Domain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.inventory.SetTotalQuantity(r.Context(), userID(r), chi.URLParam(r, "productID"), quantity)
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req rpc.ReplenishRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := req.Domain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	requestID := r.Header.Get(IdempotencyKeyHeader)
	product, err := h.inventory.Replenish(r.Context(), userID(r), chi.URLParam(r, "productID"), requestID, in)
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.inventory.ListBatches(r.Context(), userID(r), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.FromBatches(batches))
}

func (h *HTTPHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req rpc.AddBatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := req.Domain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.inventory.AddBatch(r.Context(), userID(r), chi.URLParam(r, "productID"), in)
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	var req rpc.UpdateBatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	quantity, err := req.Domain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.inventory.UpdateBatch(r.Context(), userID(r),
		chi.URLParam(r, "productID"), chi.URLParam(r, "batchID"), quantity)
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	product, err := h.inventory.DeleteBatch(r.Context(), userID(r),
		chi.URLParam(r, "productID"), chi.URLParam(r, "batchID"))
	h.writeProduct(w, r, product, err)
}

func (h *HTTPHandler) ShoppingList(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ShoppingList(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.FromProducts(products))
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *HTTPHandler) writeProduct(w http.ResponseWriter, r *http.Request, product *domain.Product, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rpc.FromProduct(*product))
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := classify(err)
	logFailure(h.log, err, logrus.Fields{
		"user_id":    userID(r),
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	})
	writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserIDHeader)
		if id == "" {
			_, _, message := classify(domain.ErrUnauthenticated)
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, id)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
