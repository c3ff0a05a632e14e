package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novostudio.tech/foundation/internal/entity"
	apperrors "novostudio.tech/foundation/internal/pkg/errors"
)

const productColumns = "active, created_at, currency, description, id, name, price_cents, sku, updated_at"

// renderErrors is a minimal stand-in for the API error middleware so the
// controller can be exercised in isolation.
func renderErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 {
		return
	}
	err := c.Errors.Last().Err
	if appErr, ok := apperrors.IsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
}

func newTestController(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctl := NewController[entity.Product](NewRegistry(), entity.Products, Options{
		Tag: "Products",
		CreateRules: map[string]string{
			"name": "required,min=1",
			"sku":  "required",
		},
		UpdateRules: map[string]string{
			"name": "min=1",
		},
	})
	ctl.Bind(sqlx.NewDb(db, "pgx"))

	r := gin.New()
	r.Use(renderErrors)
	ctl.Mount(r.Group("/admin"))
	return r, mock
}

func productRow(id, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"active", "created_at", "currency", "description",
		"id", "name", "price_cents", "sku", "updated_at",
	}).AddRow(true, now, "USD", "", id, name, int64(1000), "SKU-"+id, now)
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.AppError {
	t.Helper()
	var appErr apperrors.AppError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appErr))
	return appErr
}

func TestList_Defaults(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT " + productColumns + " FROM products OFFSET $1 LIMIT $2").
		WithArgs(0, 10).
		WillReturnRows(productRow("p1", "alpha"))

	w := doRequest(r, http.MethodGet, "/admin/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse[entity.Product]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.PerPage)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alpha", resp.Data[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_SortAndFilter(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM products WHERE active = $1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE active = $1 ORDER BY name DESC OFFSET $2 LIMIT $3").
		WithArgs(true, 5, 5).
		WillReturnRows(productRow("p6", "zeta"))

	q := url.Values{}
	q.Set("page", "2")
	q.Set("perPage", "5")
	q.Set("sort", "name")
	q.Set("order", "desc")
	q.Set("filter", `{"active":true}`)

	w := doRequest(r, http.MethodGet, "/admin/products?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse[entity.Product]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"unknown sort column", "sort=password", "Invalid sort field: password"},
		{"page below one", "page=0", "page must be at least 1"},
		{"perPage above limit", "perPage=1000", "perPage must be between 1 and 100"},
		{"bad order", "order=sideways", "order must be ASC or DESC"},
		{"filter not json", "filter=nope", "Invalid filter JSON"},
		{"filter not an object", "filter=" + url.QueryEscape(`[1,2]`), "Filter must be a flat object with scalar values"},
		{"filter nested value", "filter=" + url.QueryEscape(`{"name":{"like":"x"}}`), "Filter must be a flat object with scalar values"},
		{"filter unknown column", "filter=" + url.QueryEscape(`{"password":"x"}`), "Invalid filter field: password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newTestController(t)

			w := doRequest(r, http.MethodGet, "/admin/products?"+tt.query, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)

			appErr := decodeError(t, w)
			assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
			require.NotEmpty(t, appErr.FieldErrors)
			assert.Equal(t, tt.message, appErr.FieldErrors[0].Message)
			assert.NoError(t, mock.ExpectationsWereMet(), "no query may reach the database")
		})
	}
}

func TestGet(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(productRow("p1", "alpha"))

	w := doRequest(r, http.MethodGet, "/admin/products/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got entity.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "alpha", got.Name)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w = doRequest(r, http.MethodGet, "/admin/products/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decodeError(t, w).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("INSERT INTO products (name, sku) VALUES ($1, $2) RETURNING " + productColumns).
		WithArgs("omega", "SKU-p9").
		WillReturnRows(productRow("p9", "omega"))

	w := doRequest(r, http.MethodPost, "/admin/products", gin.H{
		"name": "omega",
		"sku":  "SKU-p9",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got entity.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "p9", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RejectsUnknownAndMissingFields(t *testing.T) {
	r, mock := newTestController(t)

	// "id" is not writable, "name" is required but absent.
	w := doRequest(r, http.MethodPost, "/admin/products", gin.H{
		"id":  "forced-id",
		"sku": "SKU-1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	appErr := decodeError(t, w)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	fields := make(map[string]string)
	for _, fe := range appErr.FieldErrors {
		fields[fe.Field] = fe.Rule
	}
	assert.Equal(t, "writable", fields["id"])
	assert.Equal(t, "required", fields["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_PartialMerge(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(productRow("p1", "alpha"))
	mock.ExpectQuery("UPDATE products SET name = $1, updated_at = now() WHERE id = $2 RETURNING " + productColumns).
		WithArgs("renamed", "p1").
		WillReturnRows(productRow("p1", "renamed"))

	w := doRequest(r, http.MethodPut, "/admin/products/p1", gin.H{"name": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	var got entity.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "renamed", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_MissingRow(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := doRequest(r, http.MethodPut, "/admin/products/missing", gin.H{"name": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RuleAppliesOnlyToPresentFields(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(productRow("p1", "alpha"))

	w := doRequest(r, http.MethodPut, "/admin/products/p1", gin.H{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	appErr := decodeError(t, w)
	require.NotEmpty(t, appErr.FieldErrors)
	assert.Equal(t, "name", appErr.FieldErrors[0].Field)
	assert.Equal(t, "min", appErr.FieldErrors[0].Rule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	r, mock := newTestController(t)

	mock.ExpectExec("DELETE FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doRequest(r, http.MethodDelete, "/admin/products/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"p1"}`, w.Body.String())

	mock.ExpectExec("DELETE FROM products WHERE id = $1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w = doRequest(r, http.MethodDelete, "/admin/products/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
