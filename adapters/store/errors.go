// Package store provides revocation store backends for memory, Redis and PostgreSQL.
package store

import (
	"fmt"

	"github.com/layer-3/quill/core"
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}
