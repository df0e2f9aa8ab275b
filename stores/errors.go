package stores

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the core distinguishes. Everything else is
// treated as an unrecognized store error and propagated as-is.
const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgSerializationError  = "40001"
	pgDeadlockDetected    = "40P01"
	pgLockNotAvailable    = "55P03"
	pgTooManyConnections  = "53300"
	pgCannotConnectNow    = "57P03"
	pgConnectionFailure   = "08006"
	pgConnectionException = "08000"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique-constraint
// violation. For the idempotency ledger this is the expected success
// path for duplicate events, not a failure.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return pgCode(err) == pgUniqueViolation
}

// IsExclusionViolation reports whether err is an exclusion-constraint
// violation, raised when two transactions race to insert overlapping
// appointment ranges for the same staff member.
func IsExclusionViolation(err error) bool {
	return pgCode(err) == pgExclusionViolation
}

// IsTransient reports whether err is a store-level write conflict or
// connection hiccup that makes re-running the whole transaction worth
// trying.
func IsTransient(err error) bool {
	switch pgCode(err) {
	case pgSerializationError, pgDeadlockDetected, pgLockNotAvailable,
		pgTooManyConnections, pgCannotConnectNow,
		pgConnectionFailure, pgConnectionException:
		return true
	}
	return false
}
