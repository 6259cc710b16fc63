package adminapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/webserver"
)

type productPayload struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category" validate:"required"`
	Image       string           `json:"image"`
}

// registerProductRoutes registers the catalog management endpoints
func (h *Handler) registerProductRoutes(s *webserver.Server) {
	s.AdminGET("/products", h.listProducts)
	s.AdminGET("/products/export", h.exportProducts)
	s.AdminPOST("/products", h.createProduct)
	s.AdminPATCH("/products/:id", h.toggleFeatured)
	s.AdminDELETE("/products/:id", h.deleteProduct)
}

// operatorContext tags the request context with the acting admin for the audit log
func operatorContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if u := webserver.CurrentUser(c); u != nil {
		ctx = catalog.WithOperator(ctx, u.ID)
	}
	return ctx
}

func (h *Handler) listProducts(c echo.Context) error {
	products, err := h.catalog.GetAll(c.Request().Context())
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, products)
}

func (h *Handler) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return webserver.HandleError(c, err)
	}
	p, err := h.catalog.Create(operatorContext(c), catalog.Draft{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Category:    payload.Category,
		Image:       payload.Image,
	})
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.Created(c, p)
}

func (h *Handler) toggleFeatured(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := h.catalog.ToggleFeatured(operatorContext(c), id)
	if err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, p)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return webserver.Fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := h.catalog.Delete(operatorContext(c), id); err != nil {
		return webserver.HandleError(c, err)
	}
	return webserver.OK(c, map[string]interface{}{"id": strconv.FormatInt(id, 10), "deleted": true})
}

func (h *Handler) exportProducts(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.catalog.ExportCSV(c.Request().Context(), &buf); err != nil {
		return webserver.HandleError(c, err)
	}
	filename := "products-" + time.Now().UTC().Format("20060102") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
