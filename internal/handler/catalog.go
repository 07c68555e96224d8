package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/apiclient"
	"github.com/iliyamo/shopflow/internal/catalog"
	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/middleware"
	"github.com/iliyamo/shopflow/internal/model"
)

// CatalogHandler serves product browsing and the admin product panel.
// Admin writes drop the cached listings.
type CatalogHandler struct {
	Catalog *catalog.Service
	Cache   *middleware.CatalogCache
}

func NewCatalogHandler(svc *catalog.Service, cache *middleware.CatalogCache) *CatalogHandler {
	if svc == nil {
		panic("nil catalog service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: svc, Cache: cache}
}

// List answers GET /v1/products?page=&limit=&search=&sort=.
func (h *CatalogHandler) List(c echo.Context) error {
	var q catalog.BrowseQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query"})
	}
	listing, err := h.Catalog.Browse(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err, "list products")
	}
	return c.JSON(http.StatusOK, listing)
}

func (h *CatalogHandler) Get(c echo.Context) error {
	p, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "get product")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) Create(c echo.Context) error {
	in, img, closeImg, err := productForm(c)
	if err != nil {
		return respondError(c, err, "create product")
	}
	defer closeImg()
	p, err := h.Catalog.Create(c.Request().Context(), in, img)
	if err != nil {
		return respondError(c, err, "create product")
	}
	h.Cache.Invalidate(c.Request().Context())
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) Update(c echo.Context) error {
	in, img, closeImg, err := productForm(c)
	if err != nil {
		return respondError(c, err, "update product")
	}
	defer closeImg()
	p, err := h.Catalog.Update(c.Request().Context(), c.Param("id"), in, img)
	if err != nil {
		return respondError(c, err, "update product")
	}
	h.Cache.Invalidate(c.Request().Context())
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) Delete(c echo.Context) error {
	if err := h.Catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err, "delete product")
	}
	h.Cache.Invalidate(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) Toggle(c echo.Context) error {
	p, err := h.Catalog.ToggleStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "toggle product")
	}
	h.Cache.Invalidate(c.Request().Context())
	return c.JSON(http.StatusOK, p)
}

// productForm reads the admin product form, either as JSON or as a
// multipart form with an optional "image" file. closeImg releases the
// uploaded file and is always safe to call.
func productForm(c echo.Context) (in model.ProductInput, img *apiclient.ImageUpload, closeImg func(), err error) {
	closeImg = func() {}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := c.Bind(&in); err != nil {
			return in, nil, closeImg, errs.Validation("", "Invalid product data.")
		}
		return in, nil, closeImg, nil
	}

	in = model.ProductInput{
		Name:        c.FormValue("name"),
		SKU:         c.FormValue("sku"),
		Description: c.FormValue("description"),
		Status:      model.ProductStatus(c.FormValue("status")),
		Image:       strings.TrimSpace(c.FormValue("image_url")),
	}
	if in.Price, err = decimal.NewFromString(strings.TrimSpace(c.FormValue("price"))); err != nil {
		return in, nil, closeImg, errs.Validation("price", "Price must be a number.")
	}
	if in.Stock, err = strconv.Atoi(strings.TrimSpace(c.FormValue("stock"))); err != nil {
		return in, nil, closeImg, errs.Validation("stock", "Stock must be a whole number.")
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return in, nil, closeImg, err
		}
		return in, &apiclient.ImageUpload{Filename: fh.Filename, Data: f}, func() { _ = f.Close() }, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil, closeImg, nil
	default:
		return in, nil, closeImg, err
	}
}

