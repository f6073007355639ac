package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
)

// DefaultTable is the parameter table of the FlexURL extension.
const DefaultTable = "bbbext_flexurl"

// Repository provides Postgres-backed persistence for parameter rows.
type Repository struct {
	pool  *pgxpool.Pool
	table string
	ident string
}

// NewRepository constructs a Repository over table; an empty name selects DefaultTable.
func NewRepository(pool *pgxpool.Pool, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{
		pool:  pool,
		table: table,
		ident: pgx.Identifier{table}.Sanitize(),
	}
}

// Table implements domain.ParameterRepository.
func (r *Repository) Table() string {
	return r.table
}

// ListByInstance returns the rows of an instance ordered by insertion.
func (r *Repository) ListByInstance(ctx context.Context, instanceID int64) ([]domain.ParameterRow, error) {
	query := fmt.Sprintf(`SELECT id, bigbluebuttonbnid, eventtype, paramname, paramvalue
        FROM %s WHERE bigbluebuttonbnid=$1 ORDER BY id`, r.ident)

	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ParameterRow, 0)
	for rows.Next() {
		var row domain.ParameterRow
		if err := rows.Scan(&row.ID, &row.InstanceID, &row.EventType, &row.Name, &row.Value); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Replace deletes the instance rows and inserts rows in order inside a single transaction.
func (r *Repository) Replace(ctx context.Context, instanceID int64, rows []domain.ParameterRow) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE bigbluebuttonbnid=$1`, r.ident), instanceID); err != nil {
		return err
	}

	insert := fmt.Sprintf(`INSERT INTO %s (bigbluebuttonbnid, eventtype, paramname, paramvalue)
        VALUES ($1,$2,$3,$4)`, r.ident)
	for _, row := range rows {
		if _, err = tx.Exec(ctx, insert, instanceID, int(row.EventType), row.Name, row.Value); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteByInstance removes every row of the instance.
func (r *Repository) DeleteByInstance(ctx context.Context, instanceID int64) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE bigbluebuttonbnid=$1`, r.ident), instanceID)
	return err
}
