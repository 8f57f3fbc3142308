package meeting

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Fields lists the meeting properties covered by validation reports, in schema order.
var Fields = []string{
	"id", "title", "description", "classification", "status", "start", "end",
	"all_day", "time_notes", "location", "links", "source",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("classification", func(fl validator.FieldLevel) bool {
			return Classification(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks the meeting against the schema rules.
func (m *Meeting) Validate() error {
	return validatorInstance().Struct(m)
}

// InvalidFields returns the top-level properties that failed validation, without
// duplicates. A nil error yields nil.
func InvalidFields(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	seen := make(map[string]bool)
	var fields []string
	for _, fe := range verrs {
		// Namespace is "Meeting.links[0].href"; the property is the second segment.
		parts := strings.Split(fe.Namespace(), ".")
		name := fe.Field()
		if len(parts) > 1 {
			name = parts[1]
		}
		if i := strings.Index(name, "["); i >= 0 {
			name = name[:i]
		}
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields
}
