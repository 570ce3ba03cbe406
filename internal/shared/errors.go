package shared

import "fmt"

var (
	// Routing and request validation errors
	ErrNotFound         = fmt.Errorf("not found")
	ErrMethodNotAllowed = fmt.Errorf("method not allowed")
	ErrMissingParameter = fmt.Errorf("missing parameter")
	ErrInvalidParameter = fmt.Errorf("invalid parameter")

	// Authentication errors
	ErrMalformedCredentials = fmt.Errorf("malformed credentials")
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials")

	// Record store errors
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrStorageRead        = fmt.Errorf("storage read failed")
	ErrStorageWrite       = fmt.Errorf("storage write failed")

	// Catch-all for anything unclassified
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
)
