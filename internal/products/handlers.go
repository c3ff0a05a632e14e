// Package products serves the public product catalog. Reads only; catalog
// management happens through the admin panel.
//
// Import Path: novostudio.tech/foundation/internal/products
package products

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"novostudio.tech/foundation/internal/entity"
	apperrors "novostudio.tech/foundation/internal/pkg/errors"
	"novostudio.tech/foundation/internal/repository"
)

// Pagination bounds for public listings.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Handler serves the /products routes.
type Handler struct {
	repo *repository.Repository[entity.Product]
}

// NewHandler wires the products handler.
func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: repository.New[entity.Product](db, entity.Products)}
}

// Mount registers the public catalog routes.
func (h *Handler) Mount(rg *gin.RouterGroup) {
	rg.GET("/products", h.list)
	rg.GET("/products/:id", h.get)
}

// ListResponse is the paginated catalog envelope.
type ListResponse struct {
	Data    []entity.Product `json:"data"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"perPage"`
}

type listQuery struct {
	Page    int    `form:"page,default=1"`
	PerPage int    `form:"perPage,default=20"`
	Sort    string `form:"sort,default=name"`
	Order   string `form:"order,default=ASC"`
}

// sortable are the catalog columns exposed for public ordering.
var sortable = map[string]struct{}{
	"name":        {},
	"sku":         {},
	"price_cents": {},
	"created_at":  {},
}

func (h *Handler) list(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(apperrors.BadRequest("Invalid query parameters"))
		c.Abort()
		return
	}

	var fieldErrs []apperrors.FieldError
	if q.Page < 1 {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "page", Message: "page must be at least 1", Rule: "min",
		})
	}
	if q.PerPage < 1 || q.PerPage > MaxPerPage {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field:   "perPage",
			Message: fmt.Sprintf("perPage must be between 1 and %d", MaxPerPage),
			Rule:    "range",
		})
	}
	if _, ok := sortable[q.Sort]; !ok {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field:   "sort",
			Message: fmt.Sprintf("Invalid sort field: %s", q.Sort),
			Rule:    "column",
		})
	}
	order := strings.ToUpper(q.Order)
	if order != "ASC" && order != "DESC" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "order", Message: "order must be ASC or DESC", Rule: "oneof",
		})
	}
	if len(fieldErrs) > 0 {
		c.Error(apperrors.Validation("Validation failed", fieldErrs...))
		c.Abort()
		return
	}

	rows, total, err := h.repo.FindAndCount(c.Request.Context(), repository.ListParams{
		Offset: (q.Page - 1) * q.PerPage,
		Limit:  q.PerPage,
		Sort:   q.Sort,
		Order:  order,
		Filter: map[string]any{"active": true},
	})
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Data:    rows,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

func (h *Handler) get(c *gin.Context) {
	row, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = apperrors.NotFound("Product not found")
		}
		c.Error(err)
		c.Abort()
		return
	}
	if !row.Active {
		c.Error(apperrors.NotFound("Product not found"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, row)
}
