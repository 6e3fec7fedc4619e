// Package validation checks `validate` struct tags on webhook payloads and
// configuration sections with go-playground/validator, reporting fields by
// their json or mapstructure names.
//
//	type Section struct {
//	    BaseURL string `mapstructure:"base_url" validate:"required,url"`
//	}
//	err := validation.Validate(section)
package validation
