package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"
	// tokenIndex is the unique index on orders.correlation_token.
	tokenIndex = "orders_correlation_token_idx"
)

const orderColumns = `id, customer_email, book_title, author, grade_level, length, is_rush,
       sample_text, sample_key, authentic_style, target_grade, language, focus_areas,
       status, report_text, error_message, correlation_token, price, due_at,
       created_at, started_at, completed_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new order.
func (r *PGRepo) Create(ctx context.Context, order Order) error {
	const query = `
INSERT INTO orders (
	id, customer_email, book_title, author, grade_level, length, is_rush,
	sample_text, sample_key, authentic_style, target_grade, language, focus_areas,
	status, correlation_token, price, due_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	focusAreas, err := marshalFocusAreas(order.FocusAreas)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		order.ID,
		order.CustomerEmail,
		order.BookTitle,
		order.Author,
		order.GradeLevel,
		order.Length,
		order.IsRush,
		nullString(order.SampleText),
		nullString(order.SampleKey),
		order.AuthenticStyle,
		order.TargetGrade,
		order.Language,
		focusAreas,
		order.Status,
		order.CorrelationToken,
		order.Price.StringFixed(2),
		order.DueAt,
		order.CreatedAt,
		order.CreatedAt,
	)
	if isTokenViolation(err) {
		return ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID returns an order by ID.
func (r *PGRepo) GetByID(ctx context.Context, orderID string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, orderID))
}

// GetByCorrelationToken returns the order created with token.
func (r *PGRepo) GetByCorrelationToken(ctx context.Context, token string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE correlation_token = $1 LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, token))
}

// List returns orders newest first with limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if offset < 0 {
		offset = 0
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	query := `SELECT ` + orderColumns + `
FROM orders
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limitArg, offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// Transition updates the order only while its status is one of from.
func (r *PGRepo) Transition(ctx context.Context, orderID string, from []Status, change StatusChange) (Order, error) {
	if len(from) == 0 {
		return Order{}, ErrStatusConflict
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	next := change.apply(Order{})

	args := []any{
		orderID,
		next.Status,
		next.ReportText,
		next.ErrorMessage,
		nullTime(next.StartedAt),
		nullTime(next.CompletedAt),
		change.At,
	}
	placeholders := make([]string, len(from))
	for i, status := range from {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := `
UPDATE orders
SET status = $2,
    report_text = $3,
    error_message = $4,
    started_at = COALESCE($5, started_at),
    completed_at = $6,
    updated_at = $7
WHERE id = $1 AND status IN (` + strings.Join(placeholders, ", ") + `)
RETURNING ` + orderColumns

	updated, err := scanOne(r.DB.QueryRowContext(ctx, query, args...))
	if !errors.Is(err, ErrNotFound) {
		return updated, err
	}
	// No row matched: distinguish a missing order from a failed guard.
	if _, getErr := r.GetByID(ctx, orderID); getErr != nil {
		return Order{}, getErr
	}
	return Order{}, ErrStatusConflict
}

// ListStale returns processing orders started before cutoff, oldest first.
func (r *PGRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Order, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	query := `SELECT ` + orderColumns + `
FROM orders
WHERE status = $1 AND started_at < $2
ORDER BY started_at ASC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, StatusProcessing, cutoff, limitArg)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return order, nil
}

func scanAll(rows *sql.Rows) ([]Order, error) {
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var sampleText sql.NullString
	var sampleKey sql.NullString
	var focusAreas []byte
	var reportText sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.CustomerEmail,
		&o.BookTitle,
		&o.Author,
		&o.GradeLevel,
		&o.Length,
		&o.IsRush,
		&sampleText,
		&sampleKey,
		&o.AuthenticStyle,
		&o.TargetGrade,
		&o.Language,
		&focusAreas,
		&o.Status,
		&reportText,
		&errorMessage,
		&o.CorrelationToken,
		&o.Price,
		&o.DueAt,
		&o.CreatedAt,
		&startedAt,
		&completedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	o.SampleText = sampleText.String
	o.SampleKey = sampleKey.String
	o.ReportText = reportText.String
	o.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		o.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	if len(focusAreas) > 0 {
		if err := json.Unmarshal(focusAreas, &o.FocusAreas); err != nil {
			return Order{}, fmt.Errorf("decode focus_areas for order %s: %w", o.ID, err)
		}
	}
	return o, nil
}

func marshalFocusAreas(areas []string) (string, error) {
	if areas == nil {
		areas = []string{}
	}
	payload, err := json.Marshal(areas)
	if err != nil {
		return "", fmt.Errorf("encode focus_areas: %w", err)
	}
	return string(payload), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// isTokenViolation reports a unique violation on the correlation token. Other
// unique violations, such as a primary key collision, are plain storage errors.
func isTokenViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == tokenIndex
}

var _ Repo = (*PGRepo)(nil)
