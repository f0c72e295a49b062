package resource

import (
	"context"
	"errors"

	"housingadmin/console/internal/validation"
)

var ErrValidation = errors.New("draft has invalid fields")

// Draft is the unsaved copy of an entity being created or edited.
type Draft interface {
	// Validate runs the synchronous, local checks.
	Validate(v *validation.Validator, editing bool) validation.FieldErrors
	// Payload is the JSON body sent to the backend. Write-only fields left
	// blank on edit are omitted.
	Payload(editing bool) map[string]any
}

// PrepareFunc runs after validation and before the backend call, e.g. to
// upload files and record their URLs in the draft.
type PrepareFunc[D Draft] func(ctx context.Context, draft *D) error

// Form controls a single create or edit. It keeps the draft on failure so
// the user's input is never lost.
type Form[T Entity, D Draft] struct {
	manager   *Manager[T]
	validator *validation.Validator
	prepare   PrepareFunc[D]

	draft     D
	editingID string
	errors    validation.FieldErrors
	submitErr error
}

func NewForm[T Entity, D Draft](manager *Manager[T], v *validation.Validator, prepare PrepareFunc[D]) *Form[T, D] {
	if v == nil {
		v = validation.New()
	}
	return &Form[T, D]{manager: manager, validator: v, prepare: prepare}
}

// Begin starts a create (id == "") or an edit of id.
func (f *Form[T, D]) Begin(draft D, id string) {
	f.draft = draft
	f.editingID = id
	f.errors = nil
	f.submitErr = nil
}

func (f *Form[T, D]) Draft() D { return f.draft }

func (f *Form[T, D]) Editing() bool { return f.editingID != "" }

func (f *Form[T, D]) EditingID() string { return f.editingID }

// Errors are the per-field messages of the last submit.
func (f *Form[T, D]) Errors() validation.FieldErrors { return f.errors }

// SubmitErr is the backend or prepare error of the last submit.
func (f *Form[T, D]) SubmitErr() error { return f.submitErr }

// Submit validates, prepares and sends the draft. Invalid drafts never reach
// the network and return ErrValidation.
func (f *Form[T, D]) Submit(ctx context.Context) (T, error) {
	var zero T
	f.errors = nil
	f.submitErr = nil

	if errs := f.draft.Validate(f.validator, f.Editing()); len(errs) > 0 {
		f.errors = errs
		return zero, ErrValidation
	}

	if f.prepare != nil {
		if err := f.prepare(ctx, &f.draft); err != nil {
			var fieldErrs validation.FieldErrors
			if errors.As(err, &fieldErrs) {
				f.errors = fieldErrs
				return zero, ErrValidation
			}
			f.submitErr = err
			return zero, err
		}
	}

	payload := f.draft.Payload(f.Editing())

	var (
		saved T
		err   error
	)
	if f.Editing() {
		saved, err = f.manager.Update(ctx, f.editingID, payload)
	} else {
		saved, err = f.manager.Create(ctx, payload)
	}
	if err != nil {
		f.submitErr = err
		return zero, err
	}

	var cleared D
	f.draft = cleared
	f.editingID = ""
	return saved, nil
}
