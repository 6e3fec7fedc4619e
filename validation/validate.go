package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hyodoblog/mojiokoshi-line-bot/errors"
)

// FieldError names one offending field by its wire or config name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var engine = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	return v
})

// Validate checks the `validate` struct tags of s. Failures come back as
// one INVALID_INPUT error whose "fields" detail lists every field.
func Validate(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failed))
	msgs := make([]string, len(failed))
	for i, fe := range failed {
		fields[i] = FieldError{Field: path(fe), Message: describe(fe)}
		msgs[i] = fields[i].Field + ": " + fields[i].Message
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}

// tagName prefers the json name, then the mapstructure name.
func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		switch name {
		case "-":
			return snake(f.Name)
		case "":
			continue
		default:
			return name
		}
	}
	return snake(f.Name)
}

// path drops the root type, so nested fields read "events[0].replyToken".
func path(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + p
	case "min", "gte":
		return "must be at least " + p
	case "max", "lte":
		return "must be at most " + p
	case "gt":
		return "must be greater than " + p
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + p
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
