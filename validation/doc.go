// Package validation provides input validation for configuration structs
// and request envelopes.
//
// Struct tag validation uses the validator library and is the recommended
// path for configuration:
//
//	type RetryConfig struct {
//	    MaxAttempts int     `validate:"gte=1,lte=10"`
//	    Jitter      float64 `validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects field errors fluently:
//
//	v := validation.New()
//	v.Required("operation", req.Operation)
//	err := v.Validate()
package validation
