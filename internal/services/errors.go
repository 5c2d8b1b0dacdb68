package services

import (
	"github.com/vytor/cryptogram/internal/errors"
)

// wrap keeps coded errors from the layers below and turns anything else
// into an INTERNAL_ERROR.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.NewInternalError(err)
}
