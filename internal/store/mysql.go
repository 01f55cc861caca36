package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// mysqlDuplicateEntry is the server error for a unique-key violation.
const mysqlDuplicateEntry = 1062

// MySQL implements every store contract over one *sql.DB pool.
type MySQL struct {
	db *sql.DB
}

// NewMySQL wraps an open pool.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// storeErr wraps driver-level failures so callers can classify them. A
// unique-key violation is the caller's conflict, not an outage; everything
// else is retryable via errors.Is(err, models.ErrStoreUnavailable).
func storeErr(op string, err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrConflict)
	}
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrStoreUnavailable)
}
