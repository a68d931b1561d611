// Package validation validates configuration and command-line input.
//
// Struct tag validation, used for process.Config and the entry point's
// configuration:
//
//	type Config struct {
//	    Stdout string `mapstructure:"stdout" validate:"omitempty,oneof=inherit null pipe"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation with error collection:
//
//	v := validation.New()
//	v.Required("program", program).NoNUL("program", program)
//	if appErr := v.Validate(); appErr != nil { ... }
//
// Both return an errors.AppError with code INVALID_INPUT and a "fields"
// detail listing each failure.
package validation
