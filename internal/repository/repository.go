// Package repository implements the persistence-access abstraction for one
// entity type over sqlx. Identifiers interpolated into SQL are always taken
// from the entity descriptor, never from the request.
//
// Import Path: novostudio.tech/foundation/internal/repository
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"novostudio.tech/foundation/internal/entity"
)

// ErrNotFound is returned when a primary-key lookup matches no row.
var ErrNotFound = errors.New("repository: row not found")

// ListParams describe one page of a filtered, ordered listing.
// Sort and Filter keys must already be validated against the descriptor.
type ListParams struct {
	Offset int
	Limit  int
	Sort   string
	Order  string // "ASC" or "DESC"
	Filter map[string]any
}

// Repository provides CRUD over one entity type.
type Repository[T any] struct {
	db   *sqlx.DB
	desc *entity.Descriptor
}

// New binds a repository to a database handle and an entity descriptor.
func New[T any](db *sqlx.DB, desc *entity.Descriptor) *Repository[T] {
	return &Repository[T]{db: db, desc: desc}
}

// Descriptor returns the entity descriptor the repository is bound to.
func (r *Repository[T]) Descriptor() *entity.Descriptor { return r.desc }

// FindAndCount returns one page of rows plus the total count of the full
// filtered set.
func (r *Repository[T]) FindAndCount(ctx context.Context, p ListParams) ([]T, int, error) {
	where, args := r.buildWhere(p.Filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.desc.Table, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.desc.Table, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", r.selectColumns(), r.desc.Table, where)
	if p.Sort != "" {
		order := "ASC"
		if strings.EqualFold(p.Order, "DESC") {
			order = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", p.Sort, order)
	}
	query += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
	args = append(args, p.Offset, p.Limit)

	rows := []T{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select %s: %w", r.desc.Table, err)
	}
	return rows, total, nil
}

// FindByID looks up a single row by primary key.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		r.selectColumns(), r.desc.Table, r.desc.PrimaryKey)

	var row T
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s %s: %w", r.desc.Table, id, err)
	}
	return &row, nil
}

// Insert persists a new row from column/value pairs and returns the stored
// row including generated fields.
func (r *Repository[T]) Insert(ctx context.Context, fields map[string]any) (*T, error) {
	cols := sortedKeys(fields)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.desc.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		r.selectColumns(),
	)

	var row T
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.desc.Table, err)
	}
	return &row, nil
}

// UpdateByID applies column/value pairs to an existing row and returns the
// stored row. Columns absent from fields keep their value.
func (r *Repository[T]) UpdateByID(ctx context.Context, id string, fields map[string]any) (*T, error) {
	cols := sortedKeys(fields)
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, fields[c])
	}
	if r.desc.HasColumn("updated_at") {
		sets = append(sets, "updated_at = now()")
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		r.desc.Table,
		strings.Join(sets, ", "),
		r.desc.PrimaryKey,
		len(args),
		r.selectColumns(),
	)

	var row T
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s %s: %w", r.desc.Table, id, err)
	}
	return &row, nil
}

// DeleteByID removes a row by primary key and returns the affected count.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.desc.Table, r.desc.PrimaryKey)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: %w", r.desc.Table, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: rows affected: %w", r.desc.Table, id, err)
	}
	return affected, nil
}

func (r *Repository[T]) selectColumns() string {
	return strings.Join(r.desc.Columns, ", ")
}

// buildWhere renders the filter as an AND-joined WHERE clause. Keys are
// descriptor-validated columns; values bind as placeholders.
func (r *Repository[T]) buildWhere(filter map[string]any) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	cols := sortedKeys(filter)
	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		if filter[c] == nil {
			conds = append(conds, fmt.Sprintf("%s IS NULL", c))
			continue
		}
		args = append(args, filter[c])
		conds = append(conds, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
