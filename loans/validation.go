package loans

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewBook is the input for adding copies of a book to the catalog.
type NewBook struct {
	Title    string `validate:"required,max=255"`
	Author   string `validate:"required,max=255"`
	Quantity int64  `validate:"gt=0"`
}

// NewUser is the input for registering a user or updating name and borrow limit.
type NewUser struct {
	ID          int64  `validate:"gt=0"`
	Name        string `validate:"required,max=255"`
	BorrowLimit int64  `validate:"gte=0"`
}

// BookRef identifies a book by title and author, as Borrow and Return do.
type BookRef struct {
	Title  string `validate:"required"`
	Author string `validate:"required"`
}

// Normalize trims surrounding whitespace from the text fields.
func (b NewBook) Normalize() NewBook {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)

	return b
}

// Normalize trims surrounding whitespace from the name.
func (u NewUser) Normalize() NewUser {
	u.Name = strings.TrimSpace(u.Name)

	return u
}

// Normalize trims surrounding whitespace from title and author.
func (r BookRef) Normalize() BookRef {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)

	return r
}

// Validate checks any of the input structs of this package and returns an error
// wrapping ErrInvalidInput that names every failed field.
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Join(ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}

	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
