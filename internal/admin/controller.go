package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"novostudio.tech/foundation/internal/entity"
	apperrors "novostudio.tech/foundation/internal/pkg/errors"
	"novostudio.tech/foundation/internal/repository"
)

// Pagination bounds for admin listings.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Options customize a controller beyond what the descriptor carries.
type Options struct {
	// Resource overrides the descriptor's URL segment.
	Resource string

	// Tag is the OpenAPI tag for the mounted routes.
	Tag string

	// CreateRules and UpdateRules map column names to validator tag
	// expressions applied to the request body, e.g. "required,email".
	CreateRules map[string]string
	UpdateRules map[string]string

	// Guards run before every handler of the controller.
	Guards []gin.HandlerFunc
}

// Metadata describes a mounted admin controller for discovery.
type Metadata struct {
	Entity   *entity.Descriptor
	Resource string
	Options  Options
}

// Mountable is the contract every admin controller satisfies. Bind must be
// called with the database handle before Mount.
type Mountable interface {
	AdminMetadata() *Metadata
	Bind(db *sqlx.DB)
	Mount(rg *gin.RouterGroup)
}

// Controller serves the five CRUD routes for one entity type. Construction
// registers the entity with the registry; the repository is attached later,
// once the database is open.
type Controller[T any] struct {
	meta     Metadata
	repo     *repository.Repository[T]
	validate *validator.Validate
}

// NewController declares an admin controller for the entity described by
// desc and registers the entity with reg.
func NewController[T any](reg *Registry, desc *entity.Descriptor, opts Options) *Controller[T] {
	reg.Register(desc)

	resource := opts.Resource
	if resource == "" {
		resource = desc.Resource
	}
	return &Controller[T]{
		meta: Metadata{
			Entity:   desc,
			Resource: resource,
			Options:  opts,
		},
		validate: validator.New(),
	}
}

// AdminMetadata implements Mountable.
func (ctl *Controller[T]) AdminMetadata() *Metadata { return &ctl.meta }

// Bind attaches the repository. Must be called before the router mounts the
// controller.
func (ctl *Controller[T]) Bind(db *sqlx.DB) {
	ctl.repo = repository.New[T](db, ctl.meta.Entity)
}

// Mount registers the CRUD routes under rg.
func (ctl *Controller[T]) Mount(rg *gin.RouterGroup) {
	g := rg.Group("/"+ctl.meta.Resource, ctl.meta.Options.Guards...)
	g.GET("", ctl.list)
	g.GET("/:id", ctl.get)
	g.POST("", ctl.create)
	g.PUT("/:id", ctl.update)
	g.DELETE("/:id", ctl.remove)
}

// ListResponse is the paginated envelope for admin listings.
type ListResponse[T any] struct {
	Data    []T `json:"data"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

type listQuery struct {
	Page    int    `form:"page,default=1"`
	PerPage int    `form:"perPage,default=10"`
	Sort    string `form:"sort"`
	Order   string `form:"order,default=ASC"`
	Filter  string `form:"filter"`
}

func (ctl *Controller[T]) list(c *gin.Context) {
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
	order := strings.ToUpper(q.Order)
	if order != "ASC" && order != "DESC" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "order", Message: "order must be ASC or DESC", Rule: "oneof",
		})
	}
	if q.Sort != "" && !ctl.meta.Entity.HasColumn(q.Sort) {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field:   "sort",
			Message: fmt.Sprintf("Invalid sort field: %s", q.Sort),
			Rule:    "column",
		})
	}
	filter, filterErrs := ctl.parseFilter(q.Filter)
	fieldErrs = append(fieldErrs, filterErrs...)
	if len(fieldErrs) > 0 {
		c.Error(apperrors.Validation("Validation failed", fieldErrs...))
		c.Abort()
		return
	}

	rows, total, err := ctl.repo.FindAndCount(c.Request.Context(), repository.ListParams{
		Offset: (q.Page - 1) * q.PerPage,
		Limit:  q.PerPage,
		Sort:   q.Sort,
		Order:  order,
		Filter: filter,
	})
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, ListResponse[T]{
		Data:    rows,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
}

// parseFilter decodes the filter query parameter. Only a flat JSON object
// with scalar values over known columns is accepted.
func (ctl *Controller[T]) parseFilter(raw string) (map[string]any, []apperrors.FieldError) {
	if raw == "" {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, []apperrors.FieldError{{
			Field: "filter", Message: "Invalid filter JSON", Rule: "json",
		}}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, []apperrors.FieldError{{
			Field: "filter", Message: "Filter must be a flat object with scalar values", Rule: "shape",
		}}
	}

	var fieldErrs []apperrors.FieldError
	filter := make(map[string]any, len(obj))
	for k, v := range obj {
		switch v.(type) {
		case string, float64, bool, nil:
		default:
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field: "filter", Message: "Filter must be a flat object with scalar values", Rule: "shape",
			})
			continue
		}
		if !ctl.meta.Entity.HasColumn(k) {
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field:   "filter",
				Message: fmt.Sprintf("Invalid filter field: %s", k),
				Rule:    "column",
			})
			continue
		}
		filter[k] = v
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}
	return filter, nil
}

func (ctl *Controller[T]) get(c *gin.Context) {
	row, err := ctl.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(notFoundOr(err, ctl.meta.Resource))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, row)
}

func (ctl *Controller[T]) create(c *gin.Context) {
	fields, fieldErrs := ctl.bindBody(c, ctl.meta.Options.CreateRules, true)
	if len(fieldErrs) > 0 {
		c.Error(apperrors.Validation("Validation failed", fieldErrs...))
		c.Abort()
		return
	}

	row, err := ctl.repo.Insert(c.Request.Context(), fields)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (ctl *Controller[T]) update(c *gin.Context) {
	id := c.Param("id")
	if _, err := ctl.repo.FindByID(c.Request.Context(), id); err != nil {
		c.Error(notFoundOr(err, ctl.meta.Resource))
		c.Abort()
		return
	}

	fields, fieldErrs := ctl.bindBody(c, ctl.meta.Options.UpdateRules, false)
	if len(fieldErrs) > 0 {
		c.Error(apperrors.Validation("Validation failed", fieldErrs...))
		c.Abort()
		return
	}
	if len(fields) == 0 {
		row, err := ctl.repo.FindByID(c.Request.Context(), id)
		if err != nil {
			c.Error(notFoundOr(err, ctl.meta.Resource))
			c.Abort()
			return
		}
		c.JSON(http.StatusOK, row)
		return
	}

	row, err := ctl.repo.UpdateByID(c.Request.Context(), id, fields)
	if err != nil {
		c.Error(notFoundOr(err, ctl.meta.Resource))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, row)
}

func (ctl *Controller[T]) remove(c *gin.Context) {
	id := c.Param("id")
	affected, err := ctl.repo.DeleteByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if affected == 0 {
		c.Error(apperrors.NotFound(fmt.Sprintf("%s not found", ctl.meta.Resource)))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// bindBody decodes the JSON body into writable column/value pairs and runs
// the configured validation rules. With requireAll set, "required" rules
// fire for absent fields (create); otherwise rules apply only to fields the
// request actually carries (partial update).
func (ctl *Controller[T]) bindBody(c *gin.Context, rules map[string]string, requireAll bool) (map[string]any, []apperrors.FieldError) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, []apperrors.FieldError{{
			Field: "body", Message: "Request body must be a JSON object", Rule: "json",
		}}
	}

	var fieldErrs []apperrors.FieldError
	fields := make(map[string]any, len(body))
	for k, v := range body {
		if !ctl.meta.Entity.IsWritable(k) {
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field:   k,
				Message: fmt.Sprintf("Unknown field: %s", k),
				Rule:    "writable",
			})
			continue
		}
		fields[k] = v
	}

	for col, rule := range rules {
		v, present := fields[col]
		if !present {
			if requireAll && hasRequired(rule) {
				fieldErrs = append(fieldErrs, apperrors.FieldError{
					Field:   col,
					Message: fmt.Sprintf("%s is required", col),
					Rule:    "required",
				})
			}
			continue
		}
		if err := ctl.validate.Var(v, rule); err != nil {
			fieldErrs = append(fieldErrs, fieldErrorsFromVar(col, err)...)
		}
	}
	return fields, fieldErrs
}

func hasRequired(rule string) bool {
	for _, part := range strings.Split(rule, ",") {
		if strings.TrimSpace(part) == "required" {
			return true
		}
	}
	return false
}

func fieldErrorsFromVar(col string, err error) []apperrors.FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []apperrors.FieldError{{
			Field: col, Message: fmt.Sprintf("%s is invalid", col),
		}}
	}
	out := make([]apperrors.FieldError, 0, len(ve))
	for _, fe := range ve {
		msg := fmt.Sprintf("%s failed on the '%s' rule", col, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed on the '%s=%s' rule", col, fe.Tag(), fe.Param())
		}
		out = append(out, apperrors.FieldError{Field: col, Message: msg, Rule: fe.Tag()})
	}
	return out
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(fmt.Sprintf("%s not found", resource))
	}
	return err
}
