package service

import (
	"context"
	"fmt"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// ConfirmDelete asks before deleting. A declined prompt makes no call. On a
// failed delete the owning list is not touched; on success it is re-fetched
// with refresh. deleted reports whether the record was removed.
func ConfirmDelete(ctx context.Context, c Confirmer, prompt string, del, refresh func(context.Context) error) (deleted bool, err error) {
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := del(ctx); err != nil {
		return false, err
	}
	if refresh != nil {
		if err := refresh(ctx); err != nil {
			return true, fmt.Errorf("refresh after delete: %w", err)
		}
	}
	return true, nil
}
