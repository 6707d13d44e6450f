package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// SQLSTATE codes that mark a transaction as safe to retry.
const (
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
	codeAdminShutdown        pq.ErrorCode = "57P01"
	codeCrashShutdown        pq.ErrorCode = "57P02"
	codeCannotConnectNow     pq.ErrorCode = "57P03"

	classConnectionException pq.ErrorClass = "08"
	classInsufficientRes     pq.ErrorClass = "53"
)

// classify maps driver errors onto the storage taxonomy.
// Unrecognised errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeSerializationFailure, pqErr.Code == codeDeadlockDetected:
			return fmt.Errorf("%w: %w", storage.ErrWriteConflict, err)
		case pqErr.Code.Class() == classConnectionException,
			pqErr.Code.Class() == classInsufficientRes,
			pqErr.Code == codeAdminShutdown,
			pqErr.Code == codeCrashShutdown,
			pqErr.Code == codeCannotConnectNow:
			return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
	}

	return err
}
