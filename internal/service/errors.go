package service

import (
	"errors"
	"fmt"

	"github.com/luizchaves/host-monitor/internal/domain"
)

// storeError turns storage sentinels into tagged errors. Anything else is
// wrapped as-is and ends up classified as internal.
func storeError(err error, resource, action string) error {
	var tagged *domain.Error
	switch {
	case errors.As(err, &tagged):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewNotFoundError(resource)
	case errors.Is(err, domain.ErrAlreadyExists):
		return domain.NewConflictError(resource + " already exists")
	default:
		return fmt.Errorf("%s %s: %w", action, resource, err)
	}
}
