package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/entity"
	apperrors "novostudio.tech/foundation/internal/pkg/errors"
	"novostudio.tech/foundation/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error", "console")
	m.Run()
}

var productColumns = strings.Join(entity.Products.Columns, ", ")

func newCatalogRig(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(false))
	NewHandler(sqlx.NewDb(db, "pgx")).Mount(r.Group("/api/v1"))
	return r, mock
}

func productRow(id, name string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"active", "created_at", "currency", "description",
		"id", "name", "price_cents", "sku", "updated_at",
	}).AddRow(active, now, "USD", "", id, name, int64(1500), "SKU-"+id, now)
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestCatalogList(t *testing.T) {
	r, mock := newCatalogRig(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM products WHERE active = $1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE active = $1 ORDER BY name ASC OFFSET $2 LIMIT $3").
		WithArgs(true, 0, 20).
		WillReturnRows(productRow("p1", "anvil", true).AddRow(
			true, time.Now(), "USD", "", "p2", "bellows", int64(900), "SKU-p2", time.Now(),
		))

	w := get(r, "/api/v1/products")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PerPage)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "anvil", resp.Data[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogList_SortByPrice(t *testing.T) {
	r, mock := newCatalogRig(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM products WHERE active = $1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE active = $1 ORDER BY price_cents DESC OFFSET $2 LIMIT $3").
		WithArgs(true, 0, 5).
		WillReturnRows(productRow("p1", "anvil", true))

	w := get(r, "/api/v1/products?sort=price_cents&order=desc&perPage=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogList_RejectsUnknownSort(t *testing.T) {
	r, mock := newCatalogRig(t)

	w := get(r, "/api/v1/products?sort=password_hash")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeValidationError, resp.Code)
	require.NotEmpty(t, resp.Validation)
	assert.Equal(t, "Invalid sort field: password_hash", resp.Validation[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogGet(t *testing.T) {
	r, mock := newCatalogRig(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(productRow("p1", "anvil", true))

	w := get(r, "/api/v1/products/p1")
	require.Equal(t, http.StatusOK, w.Code)

	var got entity.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "anvil", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogGet_HiddenWhenInactiveOrMissing(t *testing.T) {
	r, mock := newCatalogRig(t)

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("p1").
		WillReturnRows(productRow("p1", "anvil", false))

	w := get(r, "/api/v1/products/p1")
	assert.Equal(t, http.StatusNotFound, w.Code, "inactive products are invisible")

	mock.ExpectQuery("SELECT " + productColumns + " FROM products WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w = get(r, "/api/v1/products/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
