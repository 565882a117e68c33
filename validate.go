package facetargs

import (
	"sync"

	validatorpkg "github.com/go-playground/validator/v10"
)

// validatorOnce lazily builds the single shared validator instance reused
// for every `validate:"…"` tag in the target tree rather than one instance
// per field.
var (
	validatorOnce   sync.Once
	sharedValidator *validatorpkg.Validate
)

func sharedValidate() *validatorpkg.Validate {
	validatorOnce.Do(func() {
		sharedValidator = validatorpkg.New()
	})

	return sharedValidator
}

// runValidate applies f's `validate:"…"` tag (go-playground/validator
// syntax) to value, surfacing a rejection as an `invalid_value`
// diagnostic. A field without a `validate` tag is a no-op.
func runValidate(f *Field, displayPath string, value any) error {
	if f.Attr == nil || f.Attr.Validate == "" {
		return nil
	}

	if err := sharedValidate().Var(value, f.Attr.Validate); err != nil {
		return newDiagf(KindInvalidValue, "invalid_value: `%s` failed validation `%s`: %v",
			displayPath, f.Attr.Validate, err)
	}

	return nil
}
