package mockapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
	"github.com/iliyamo/shopflow/internal/repository"
)

type productPage struct {
	Count   int             `json:"count"`
	Results []model.Product `json:"results"`
}

// ListProducts answers GET /api/products/?page=&limit=&search=. Inactive
// products are listed too; the storefront decides what is purchasable.
func (s *Server) ListProducts(c echo.Context) error {
	q := model.ProductQuery{Search: strings.TrimSpace(c.QueryParam("search"))}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
		}
		q.Page = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		q.Limit = min(n, 100)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, total := s.products.List(ctx, q)
	return c.JSON(http.StatusOK, productPage{Count: total, Results: list})
}

func (s *Server) GetProduct(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := s.products.Get(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) CreateProduct(c echo.Context) error {
	in, err := s.productForm(c)
	if err != nil {
		return productFormError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := s.products.Create(ctx, in)
	if err != nil {
		return productStoreError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) UpdateProduct(c echo.Context) error {
	in, err := s.productForm(c)
	if err != nil {
		return productFormError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := s.products.Update(ctx, c.Param("id"), in)
	if err != nil {
		return productStoreError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) DeleteProduct(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := s.products.Delete(ctx, c.Param("id")); err != nil {
		return productStoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// productForm reads the multipart (or urlencoded) product form. An
// uploaded "image" file is kept in the media store and replaces
// "image_url".
func (s *Server) productForm(c echo.Context) (model.ProductInput, error) {
	in := model.ProductInput{
		Name:        c.FormValue("name"),
		SKU:         c.FormValue("sku"),
		Description: strings.TrimSpace(c.FormValue("description")),
		Status:      model.ProductStatus(strings.TrimSpace(c.FormValue("status"))),
		Image:       strings.TrimSpace(c.FormValue("image_url")),
	}
	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return in, errs.Validation("price", "A valid number is required.")
	}
	in.Price = price.Round(2)
	if in.Stock, err = strconv.Atoi(strings.TrimSpace(c.FormValue("stock"))); err != nil {
		return in, errs.Validation("stock", "A valid integer is required.")
	}
	if err := in.Validate(); err != nil {
		return in, err
	}

	fh, err := c.FormFile("image")
	if err == nil {
		f, err := fh.Open()
		if err != nil {
			return in, err
		}
		defer f.Close()
		name, err := s.media.put(fh.Filename, fh.Header.Get("Content-Type"), f)
		if err != nil {
			return in, err
		}
		in.Image = mediaURL(c, name)
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return in, err
	}
	return in, nil
}

func productFormError(c echo.Context, err error) error {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{ve.Field: []string{ve.Message}})
	}
	if errors.Is(err, errMediaTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"image": []string{err.Error()}})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid form"})
}

func productStoreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"sku": []string{"product with this sku already exists."}})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "product store failed"})
	}
}
