// Package validation provides common validation utilities for configuration
// parameters, operator arguments and documents across the reactflow library.
//
// Every helper returns a *errors.ValidationError so callers get consistent
// messages and can classify failures with errors.IsValidationError.
package validation
