package mutation

import (
	"context"
	"strings"
	"sync"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/model"
)

type BlogWriter interface {
	CreateBlog(ctx context.Context, in model.BlogInput) (model.Blog, error)
	UpdateBlog(ctx context.Context, id int64, in model.BlogInput) (model.Blog, error)
}

// Editor is the create or edit form for one blog. It stays open with the
// error on failure and closes only after the backend accepts the submission.
type Editor struct {
	api     BlogWriter
	editing *model.Blog

	mu         sync.Mutex
	open       bool
	submitting bool
	lastErr    error
}

// NewEditor opens an empty form for a new blog.
func NewEditor(api BlogWriter) *Editor {
	return &Editor{api: api, open: true}
}

// EditBlog opens a form prefilled from b.
func EditBlog(api BlogWriter, b model.Blog) *Editor {
	return &Editor{api: api, editing: &b, open: true}
}

// Input returns the initial form values.
func (e *Editor) Input() model.BlogInput {
	if e.editing == nil {
		return model.BlogInput{}
	}
	return model.BlogInput{
		Title:       e.editing.Title,
		Description: e.editing.Description,
		Body:        e.editing.Body,
		CategoryID:  e.editing.Category.ID,
	}
}

func (e *Editor) Open() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Err returns the error of the last failed submission, or nil.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Cancel closes the form without saving. It is refused while a submission is
// in flight.
func (e *Editor) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitting {
		return false
	}
	e.open = false
	return true
}

// Submit validates in and sends it. On success the form closes and owner is
// refetched; the saved blog is returned even if that refetch fails.
func (e *Editor) Submit(ctx context.Context, in model.BlogInput, owner Refresher) (model.Blog, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return model.Blog{}, ErrInFlight
	}
	if err := ValidateInput(in); err != nil {
		e.lastErr = err
		e.mu.Unlock()
		return model.Blog{}, err
	}
	e.submitting = true
	e.lastErr = nil
	e.mu.Unlock()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	var (
		saved model.Blog
		err   error
	)
	if e.editing == nil {
		saved, err = e.api.CreateBlog(ctx, in)
	} else {
		saved, err = e.api.UpdateBlog(ctx, e.editing.ID, in)
	}

	e.mu.Lock()
	e.submitting = false
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		return model.Blog{}, err
	}
	e.open = false
	e.mu.Unlock()

	if owner != nil {
		if err := owner.Refetch(ctx); err != nil {
			return saved, err
		}
	}
	return saved, nil
}

// ValidateInput checks that every required field is filled in.
func ValidateInput(in model.BlogInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apperr.Validation("Title is required")
	case strings.TrimSpace(in.Description) == "":
		return apperr.Validation("Description is required")
	case strings.TrimSpace(in.Body) == "":
		return apperr.Validation("Content is required")
	case in.CategoryID <= 0:
		return apperr.Validation("Category is required")
	}
	return nil
}
