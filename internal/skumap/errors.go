package skumap

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is wrapped by configuration errors naming a platform
// outside the supported marketplace set.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ConfigurationError aborts a whole operation: an explicit add for an
// unsupported platform, or a mapping file without the required header.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("skumap: %s: %v", e.Op, e.Err) }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NotFoundError is returned by RequireMasterSKU when no mapping exists.
type NotFoundError struct {
	Platform string
	SKU      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("SKU mapping not found: %s/%s", e.Platform, e.SKU)
}
