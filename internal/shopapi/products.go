package shopapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/internal/webserver"
)

// Handler serves the public storefront endpoints
type Handler struct {
	catalog *catalog.Service
	images  catalog.ImageStore
}

// New images may be nil when uploads are kept inline
func New(svc *catalog.Service, images catalog.ImageStore) *Handler {
	return &Handler{catalog: svc, images: images}
}

func (h *Handler) Register(s *webserver.Server) {
	s.ApiGET("/products/featured", h.featured)
	s.ApiGET("/products/category/:category", h.byCategory)
	s.ApiGET("/products/recommendations", h.recommendations)
	s.ApiGET("/products/search", h.search)
	s.ApiGET("/images/:key", h.image)
}

func (h *Handler) featured(c echo.Context) error {
	products, err := h.catalog.GetFeatured(c.Request().Context())
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, products)
}

func (h *Handler) byCategory(c echo.Context) error {
	// categories contain spaces, e.g. "mobile phones"
	category, err := url.PathUnescape(c.Param("category"))
	if err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed category", nil)
	}
	products, err := h.catalog.GetByCategory(c.Request().Context(), category)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, products)
}

func (h *Handler) recommendations(c echo.Context) error {
	size := catalog.DefaultRecommendSize
	if raw := strings.TrimSpace(c.QueryParam("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return webserver.HandleError(c, domain.NewValidationError("size", "must be an integer"))
		}
		size = clamp(n, 1, catalog.MaxRecommendSize)
	}
	products, err := h.catalog.GetRecommended(c.Request().Context(), size)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, products)
}

func (h *Handler) search(c echo.Context) error {
	products, err := h.catalog.Search(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, products)
}

func (h *Handler) image(c echo.Context) error {
	if h.images == nil {
		return webserver.HandleError(c, domain.NotFoundf("image %s", c.Param("key")))
	}
	img, err := h.images.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return webserver.HandleError(c, err)
	}
	// keys are never reused
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
