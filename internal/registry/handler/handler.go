// Package handler exposes the registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/metrics"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/middleware"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/registry/service"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/httputil"
)

const defaultTimeout = 30 * time.Second

// Service defines the registry operations the handler needs.
type Service interface {
	CreateProductTeam(ctx context.Context, req service.CreateProductTeamRequest) (*domain.ProductTeam, error)
	GetProductTeam(ctx context.Context, teamIDOrAlias string) (*domain.ProductTeam, error)
	DeleteProductTeam(ctx context.Context, teamIDOrAlias string) error
	CreateProduct(ctx context.Context, teamIDOrAlias string, req service.CreateProductRequest) (*domain.Product, error)
	ListProducts(ctx context.Context, teamIDOrAlias string) ([]*domain.Product, error)
	GetProduct(ctx context.Context, teamIDOrAlias, productIDOrKey string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, teamIDOrAlias, productIDOrKey string) error
	CreateDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey string, req service.CreateDeviceReferenceDataRequest) (*domain.DeviceReferenceData, error)
	ListDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey string) ([]*domain.DeviceReferenceData, error)
	GetDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey, drdID string) (*domain.DeviceReferenceData, error)
	CreateDevice(ctx context.Context, teamIDOrAlias, productIDOrKey string, req service.CreateDeviceRequest) (*domain.Device, error)
	SearchDevices(ctx context.Context, teamIDOrAlias, productIDOrKey string, t tag.Tag) ([]*domain.Device, error)
	GetDevice(ctx context.Context, teamIDOrAlias, productIDOrKey, deviceID string) (*domain.Device, error)
	DeleteDevice(ctx context.Context, teamIDOrAlias, productIDOrKey, deviceID string) error
}

// Handler handles registry endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a new registry Handler. A zero timeout uses the default.
func New(svc Service, logger *slog.Logger, metrics *metrics.Metrics, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{
		logger:  logger,
		service: svc,
		metrics: metrics,
		timeout: timeout,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(middleware.Recovery(h.logger))
	registryRouter.Use(middleware.RequestID)
	registryRouter.Use(middleware.RequestTime)
	registryRouter.Use(middleware.Logger(h.logger))
	registryRouter.Use(middleware.Timeout(h.timeout))
	registryRouter.Use(middleware.ContentTypeJSON)
	registryRouter.Use(middleware.LatencyMiddleware(h.metrics))

	registryRouter.Get("/_status", h.handleStatus)

	registryRouter.Route("/ProductTeam", func(r chi.Router) {
		r.Post("/", h.handleCreateProductTeam)
		r.Route("/{team}", func(r chi.Router) {
			r.Get("/", h.handleGetProductTeam)
			r.Delete("/", h.handleDeleteProductTeam)

			r.Route("/Product", func(r chi.Router) {
				r.Post("/", h.handleCreateProduct)
				r.Get("/", h.handleListProducts)
				r.Route("/{product}", func(r chi.Router) {
					r.Get("/", h.handleGetProduct)
					r.Delete("/", h.handleDeleteProduct)

					r.Post("/DeviceReferenceData", h.handleCreateDeviceReferenceData)
					r.Get("/DeviceReferenceData", h.handleListDeviceReferenceData)
					r.Get("/DeviceReferenceData/{drd}", h.handleGetDeviceReferenceData)

					r.Post("/Device", h.handleCreateDevice)
					r.Get("/Device", h.handleSearchDevices)
					r.Get("/Device/{device}", h.handleGetDevice)
					r.Delete("/Device/{device}", h.handleDeleteDevice)
				})
			})
		})
	})

	r.Mount("/", registryRouter)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateProductTeam(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.CreateProductTeamRequest](r)
	if err != nil {
		h.writeError(w, r, "invalid create product team request", err)
		return
	}
	team, err := h.service.CreateProductTeam(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "failed to create product team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, team)
}

func (h *Handler) handleGetProductTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetProductTeam(r.Context(), chi.URLParam(r, "team"))
	if err != nil {
		h.writeError(w, r, "failed to read product team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, team)
}

func (h *Handler) handleDeleteProductTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProductTeam(r.Context(), chi.URLParam(r, "team")); err != nil {
		h.writeError(w, r, "failed to delete product team", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.CreateProductRequest](r)
	if err != nil {
		h.writeError(w, r, "invalid create product request", err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), chi.URLParam(r, "team"), req)
	if err != nil {
		h.writeError(w, r, "failed to create product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), chi.URLParam(r, "team"))
	if err != nil {
		h.writeError(w, r, "failed to list products", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, searchResult(products))
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"))
	if err != nil {
		h.writeError(w, r, "failed to read product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product")); err != nil {
		h.writeError(w, r, "failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateDeviceReferenceData(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.CreateDeviceReferenceDataRequest](r)
	if err != nil {
		h.writeError(w, r, "invalid create device reference data request", err)
		return
	}
	drd, err := h.service.CreateDeviceReferenceData(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), req)
	if err != nil {
		h.writeError(w, r, "failed to create device reference data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, drd)
}

func (h *Handler) handleListDeviceReferenceData(w http.ResponseWriter, r *http.Request) {
	drds, err := h.service.ListDeviceReferenceData(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"))
	if err != nil {
		h.writeError(w, r, "failed to list device reference data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, searchResult(drds))
}

func (h *Handler) handleGetDeviceReferenceData(w http.ResponseWriter, r *http.Request) {
	drd, err := h.service.GetDeviceReferenceData(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), chi.URLParam(r, "drd"))
	if err != nil {
		h.writeError(w, r, "failed to read device reference data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, drd)
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.CreateDeviceRequest](r)
	if err != nil {
		h.writeError(w, r, "invalid create device request", err)
		return
	}
	device, err := h.service.CreateDevice(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), req)
	if err != nil {
		h.writeError(w, r, "failed to create device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, device)
}

// handleSearchDevices treats every query parameter as one attribute of the tag.
func (h *Handler) handleSearchDevices(w http.ResponseWriter, r *http.Request) {
	t, err := tag.FromValues(r.URL.Query())
	if err != nil {
		h.writeError(w, r, "invalid device search", err)
		return
	}
	devices, err := h.service.SearchDevices(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), t)
	if err != nil {
		h.writeError(w, r, "failed to search devices", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, searchResult(devices))
}

func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.service.GetDevice(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), chi.URLParam(r, "device"))
	if err != nil {
		h.writeError(w, r, "failed to read device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, device)
}

func (h *Handler) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDevice(r.Context(), chi.URLParam(r, "team"), chi.URLParam(r, "product"), chi.URLParam(r, "device")); err != nil {
		h.writeError(w, r, "failed to delete device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError logs client errors at warn and everything else at error, then
// writes the coded response. Uncoded errors become opaque 500s.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	status := httputil.StatusFor(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

type searchResponse[T any] struct {
	Total   int  `json:"total"`
	Entries []*T `json:"entries"`
}

func searchResult[T any](entries []*T) searchResponse[T] {
	if entries == nil {
		entries = []*T{}
	}
	return searchResponse[T]{Total: len(entries), Entries: entries}
}
