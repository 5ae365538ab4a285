// Package validation validates configuration structs with go-playground/validator.
//
// Field names in error messages use the mapstructure key so they match the
// YAML and environment keys an operator would edit:
//
//	type Config struct {
//	    URL string `mapstructure:"url" validate:"required,url"`
//	}
//	err := validation.Validate(cfg) // "url: must be a valid URL"
package validation
