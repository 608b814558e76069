// Package repository persists academy entities in PostgreSQL through sqlx.
// Multi-entity side effects run inside a single transaction so that either
// every mutation commits or none does.
package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/aulasoft/academia-engine/pkg/errors"
)

// Sentinel errors returned by capacity-guarded writes. Services map them to
// validation violations.
var (
	ErrClaseFull  = errors.New("clase capacity reached")
	ErrSesionFull = errors.New("sesion capacity reached")
)

// storeErr converts database constraint failures (unique keys, checks) into
// the STORE_CONSTRAINT error kind, leaving other errors untouched.
func storeErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return appErrors.Wrap(err, appErrors.ErrStoreConstraint.Code, appErrors.ErrStoreConstraint.Status,
			fmt.Sprintf("%s: %s", op, pqErr.Message))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
