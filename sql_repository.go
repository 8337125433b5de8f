package localping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx, so repository
// methods run unchanged inside an explicit transaction via WithTx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type SQLRepository[T Document] struct {
	db        *sql.DB
	exec      sqlExecutor
	tableName string
	columns   []string
}

func NewSQLRepository[T Document](db *sql.DB) *SQLRepository[T] {
	var doc T
	return &SQLRepository[T]{
		db:        db,
		exec:      db,
		tableName: doc.GetTableName(),
		columns:   columnsOf(doc),
	}
}

// WithTx returns a view of the repository bound to tx. The returned value
// shares the column metadata; only the executor differs.
func (r *SQLRepository[T]) WithTx(tx *sql.Tx) *SQLRepository[T] {
	return &SQLRepository[T]{
		db:        r.db,
		exec:      tx,
		tableName: r.tableName,
		columns:   r.columns,
	}
}

func (r *SQLRepository[T]) DB() *sql.DB {
	return r.db
}

func (r *SQLRepository[T]) FindById(ctx context.Context, id interface{}) (T, error) {
	var result T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1",
		strings.Join(r.columns, ","), r.tableName)
	row := r.exec.QueryRowContext(ctx, query, id)
	err := r.scanRow(row, &result)
	return result, err
}

func (r *SQLRepository[T]) Save(ctx context.Context, doc T) error {
	fields, values := extractFieldsAndValues(doc)
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.tableName,
		strings.Join(fields, ","),
		strings.Join(placeholders, ","))

	_, err := r.exec.ExecContext(ctx, query, values...)
	return err
}

func (r *SQLRepository[T]) Update(ctx context.Context, doc T) error {
	fields, values := extractFieldsAndValues(doc)

	var idValue interface{}
	var updateFields []string
	var updateValues []interface{}

	for i := 0; i < len(fields); i++ {
		if fields[i] == "id" {
			idValue = values[i]
			continue
		}
		updateFields = append(updateFields, fmt.Sprintf("%s = $%d", fields[i], len(updateValues)+1))
		updateValues = append(updateValues, values[i])
	}

	if idValue == nil {
		return fmt.Errorf("document must have an 'id' field for update operation")
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		r.tableName,
		strings.Join(updateFields, ","),
		len(updateValues)+1)

	updateValues = append(updateValues, idValue)

	_, err := r.exec.ExecContext(ctx, query, updateValues...)
	return err
}

func (r *SQLRepository[T]) Delete(ctx context.Context, id interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName)
	_, err := r.exec.ExecContext(ctx, query, id)
	return err
}

func (r *SQLRepository[T]) FindOneBy(ctx context.Context, field string, value interface{}) (T, error) {
	var result T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(r.columns, ","), r.tableName, field)
	row := r.exec.QueryRowContext(ctx, query, value)
	err := r.scanRow(row, &result)
	return result, err
}

func (r *SQLRepository[T]) FindAllPaginated(ctx context.Context, pageRequest PageRequest) (PageResponse[T], error) {
	offset := (pageRequest.Page - 1) * pageRequest.Size
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id LIMIT $1 OFFSET $2",
		strings.Join(r.columns, ","), r.tableName)

	rows, err := r.exec.QueryContext(ctx, query, pageRequest.Size, offset)
	if err != nil {
		return PageResponse[T]{}, err
	}
	defer rows.Close()

	results, err := r.scanRows(rows)
	if err != nil {
		return PageResponse[T]{}, err
	}

	var total int
	err = r.exec.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.tableName)).Scan(&total)
	if err != nil {
		return PageResponse[T]{}, err
	}

	return PageResponse[T]{
		Contents:         results,
		NumberOfElements: len(results),
		Pageable:         pageRequest,
		TotalElements:    total,
		TotalPages:       (total + pageRequest.Size - 1) / pageRequest.Size,
	}, nil
}

func (r *SQLRepository[T]) CountBy(ctx context.Context, field string, value interface{}) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", r.tableName, field)
	err := r.exec.QueryRowContext(ctx, query, value).Scan(&count)
	return count, err
}

func (r *SQLRepository[T]) CountByFilters(ctx context.Context, filters map[string]interface{}) (int64, error) {
	conditions, values := buildWhereClause(filters)
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.tableName, conditions)
	err := r.exec.QueryRowContext(ctx, query, values...).Scan(&count)
	return count, err
}

func (r *SQLRepository[T]) ExistsBy(ctx context.Context, field string, value interface{}) (bool, error) {
	count, err := r.CountBy(ctx, field, value)
	return count > 0, err
}

func (r *SQLRepository[T]) ExistsByFilters(ctx context.Context, filters map[string]interface{}) (bool, error) {
	count, err := r.CountByFilters(ctx, filters)
	return count > 0, err
}

func (r *SQLRepository[T]) scanRow(row *sql.Row, dest *T) error {
	err := row.Scan(scanTargets(dest)...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *SQLRepository[T]) scanRows(rows *sql.Rows) ([]T, error) {
	var results []T
	for rows.Next() {
		var item T
		if err := rows.Scan(scanTargets(&item)...); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// scanTargets returns pointers to dest's fields in declaration order, the
// same order columnsOf emits, so SELECT lists and scans always line up.
func scanTargets[T any](dest *T) []interface{} {
	val := reflect.ValueOf(dest).Elem()
	targets := make([]interface{}, 0, val.NumField())
	for i := 0; i < val.NumField(); i++ {
		if columnName(val.Type().Field(i)) == "" {
			continue
		}
		targets = append(targets, val.Field(i).Addr().Interface())
	}
	return targets
}

func columnsOf(doc interface{}) []string {
	typ := reflect.TypeOf(doc)
	columns := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if name := columnName(typ.Field(i)); name != "" {
			columns = append(columns, name)
		}
	}
	return columns
}

func columnName(field reflect.StructField) string {
	tag := field.Tag.Get("db")
	if tag == "-" {
		return ""
	}
	if tag == "" {
		return strings.ToLower(field.Name)
	}
	return tag
}

func extractFieldsAndValues(doc interface{}) ([]string, []interface{}) {
	v := reflect.ValueOf(doc)
	t := v.Type()
	var fields []string
	var values []interface{}

	for i := 0; i < v.NumField(); i++ {
		name := columnName(t.Field(i))
		if name == "" {
			continue
		}
		fields = append(fields, name)
		values = append(values, v.Field(i).Interface())
	}
	return fields, values
}

func buildWhereClause(filters map[string]interface{}) (string, []interface{}) {
	var conditions []string
	var values []interface{}
	i := 1

	for field, value := range filters {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", field, i))
		values = append(values, value)
		i++
	}

	return strings.Join(conditions, " AND "), values
}
