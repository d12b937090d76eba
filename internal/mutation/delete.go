package mutation

import (
	"context"
	"errors"
)

const DeletePrompt = "Are you sure you want to delete this blog? This action cannot be undone."

var ErrNotConfirmed = errors.New("deletion not confirmed")

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

type BlogDeleter interface {
	DeleteBlog(ctx context.Context, id int64) error
}

// Deleter removes blogs only after explicit confirmation. Deletion is not
// optimistic: the owning list changes only through a refetch after the
// backend succeeds.
type Deleter struct {
	api     BlogDeleter
	confirm Confirmer
	gate    Gate
}

// NewDeleter returns a Deleter. A nil confirm refuses every deletion.
func NewDeleter(api BlogDeleter, confirm Confirmer) *Deleter {
	return &Deleter{api: api, confirm: confirm}
}

// Delete asks for confirmation, deletes id and refetches owner. A declined
// confirmation returns ErrNotConfirmed and sends nothing. A backend failure
// is returned and owner is left untouched.
func (d *Deleter) Delete(ctx context.Context, id int64, owner Refresher) error {
	if d.confirm == nil {
		return ErrNotConfirmed
	}
	ok, err := d.confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}

	release, err := d.gate.Acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if err := d.api.DeleteBlog(ctx, id); err != nil {
		return err
	}
	if owner == nil {
		return nil
	}
	return owner.Refetch(ctx)
}
