// Package memory provides in-process implementations of the parameter store
// and host accessors for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
)

// DefaultTable is the table name reported for join-table queries.
const DefaultTable = "bbbext_flexurl"

// Repository stores parameter rows in memory.
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64][]domain.ParameterRow
	table  string
}

// NewRepository constructs an empty repository reporting table as its name.
func NewRepository(table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{
		rows:  make(map[int64][]domain.ParameterRow),
		table: table,
	}
}

// Table implements domain.ParameterRepository.
func (r *Repository) Table() string {
	return r.table
}

// ListByInstance returns a copy of the instance rows in insertion order.
func (r *Repository) ListByInstance(ctx context.Context, instanceID int64) ([]domain.ParameterRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.rows[instanceID]
	out := make([]domain.ParameterRow, len(stored))
	copy(out, stored)
	return out, nil
}

// Replace drops the instance rows and stores rows with fresh ids.
func (r *Repository) Replace(ctx context.Context, instanceID int64, rows []domain.ParameterRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(rows) == 0 {
		delete(r.rows, instanceID)
		return nil
	}
	stored := make([]domain.ParameterRow, 0, len(rows))
	for _, row := range rows {
		r.nextID++
		row.ID = r.nextID
		row.InstanceID = instanceID
		stored = append(stored, row)
	}
	r.rows[instanceID] = stored
	return nil
}

// DeleteByInstance removes every row of the instance.
func (r *Repository) DeleteByInstance(ctx context.Context, instanceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, instanceID)
	return nil
}
