package kernel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Filter decides whether a message may be dispatched at all.
type Filter interface {
	Test(ctx context.Context, msg *Message) (bool, error)
}

type FilterFunc func(ctx context.Context, msg *Message) (bool, error)

func (f FilterFunc) Test(ctx context.Context, msg *Message) (bool, error) { return f(ctx, msg) }

func filterName(f Filter) string {
	if n, ok := f.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}

// runFilters stops at the first filter that returns false, errors or panics.
func runFilters(ctx context.Context, filters []Filter, msg *Message) (err error) {
	for i, f := range filters {
		ok, ferr := testFilter(ctx, f, msg)
		if ferr != nil || !ok {
			return &FilteringError{Index: i, Filter: filterName(f), MessageID: msg.ID(), Cause: ferr}
		}
	}
	return nil
}

func testFilter(ctx context.Context, f Filter, msg *Message) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Test(ctx, msg)
}

// ValidationFilter rejects struct payloads whose `validate` tags fail.
type ValidationFilter struct {
	validate *validator.Validate
}

func NewValidationFilter() *ValidationFilter {
	return &ValidationFilter{validate: validator.New()}
}

func (f *ValidationFilter) Name() string { return "validation" }

func (f *ValidationFilter) Test(ctx context.Context, msg *Message) (bool, error) {
	payload := msg.Payload()
	t := reflect.TypeOf(payload)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return true, nil
	}
	if err := f.validate.StructCtx(ctx, payload); err != nil {
		return false, validationError(err)
	}
	return true, nil
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	msgs := make([]string, 0, len(ves))
	for _, e := range ves {
		msg := fmt.Sprintf("%s failed on '%s' validation", e.Field(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (param=%s)", e.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
