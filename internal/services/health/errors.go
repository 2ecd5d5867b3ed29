package health

import (
	"errors"
	"fmt"
)

// ErrReserveNotFound means a position references a reserve address that the
// supplied reserve set does not contain. The snapshot and the reserve set
// are out of sync; the whole computation is aborted rather than silently
// skipping collateral or debt.
var ErrReserveNotFound = errors.New("reserve not found")

// ErrDataIntegrity means an arithmetic precondition was violated by
// malformed input, e.g. a zero interest-index snapshot on a borrow.
var ErrDataIntegrity = errors.New("data integrity violation")

func reserveNotFoundError(obligation, reserve string) error {
	return fmt.Errorf("%w: obligation %s references reserve %s", ErrReserveNotFound, obligation, reserve)
}

func dataIntegrityError(obligation, detail string) error {
	return fmt.Errorf("%w: obligation %s: %s", ErrDataIntegrity, obligation, detail)
}
