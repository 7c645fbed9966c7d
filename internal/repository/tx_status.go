package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/perflog/perflog/internal/model"
)

// Common errors for tx status operations.
var (
	ErrTxStatusExists   = errors.New("tx status already recorded")
	ErrTxStatusNotFound = errors.New("tx status not found")
)

// List limits for ListTxStatuses.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// TxStatusFilter narrows ListTxStatuses. Zero values match everything.
type TxStatusFilter struct {
	Types    []string
	Accepted *int
	Limit    int
}

// InsertTxStatus records one tx status. The hash is unique.
func (r *Repository) InsertTxStatus(ctx context.Context, status *model.DetailedTxStatus) error {
	query := `
		INSERT INTO transactions (hash, type, "to", "from", injected, accepted, reason, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		status.TxHash,
		nullableString(string(status.Type)),
		nullableString(status.To),
		nullableString(status.From),
		status.Injected,
		status.Accepted,
		nullableString(status.Reason),
		nullableString(status.IP),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTxStatusExists
		}
		return fmt.Errorf("failed to insert tx status: %w", err)
	}

	return nil
}

// GetTxStatus retrieves a tx status by hash.
func (r *Repository) GetTxStatus(ctx context.Context, hash string) (*model.DetailedTxStatus, error) {
	query := `
		SELECT hash, type, "to", "from", injected, accepted, reason, ip, created_at
		FROM transactions
		WHERE hash = $1
	`

	status, err := scanTxStatus(r.pool.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTxStatusNotFound
		}
		return nil, fmt.Errorf("failed to get tx status: %w", err)
	}

	return status, nil
}

// ListTxStatuses returns the most recent tx statuses matching filter.
func (r *Repository) ListTxStatuses(ctx context.Context, filter TxStatusFilter) ([]*model.DetailedTxStatus, error) {
	query, args := buildListTxStatusesQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tx statuses: %w", err)
	}
	defer rows.Close()

	statuses := make([]*model.DetailedTxStatus, 0)
	for rows.Next() {
		status, err := scanTxStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tx status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tx statuses: %w", err)
	}

	return statuses, nil
}

func buildListTxStatusesQuery(filter TxStatusFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.Types) > 0 {
		args = append(args, pq.Array(filter.Types))
		conditions = append(conditions, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if filter.Accepted != nil {
		args = append(args, *filter.Accepted)
		conditions = append(conditions, fmt.Sprintf("accepted = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(`SELECT hash, type, "to", "from", injected, accepted, reason, ip, created_at FROM transactions`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY created_at DESC, hash LIMIT $%d", len(args))

	return b.String(), args
}

func scanTxStatus(row pgx.Row) (*model.DetailedTxStatus, error) {
	var status model.DetailedTxStatus
	var txType, to, from, reason, ip *string

	if err := row.Scan(
		&status.TxHash,
		&txType,
		&to,
		&from,
		&status.Injected,
		&status.Accepted,
		&reason,
		&ip,
		&status.CreatedAt,
	); err != nil {
		return nil, err
	}

	status.Type = model.TxType(deref(txType))
	status.To = deref(to)
	status.From = deref(from)
	status.Reason = deref(reason)
	status.IP = deref(ip)
	return &status, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
