package encryption

import (
	"fmt"

	"sharevault/internal/config"
	"sharevault/internal/sv"
)

// NewKeyProtectorFromConfig creates a KeyProtector based on the configuration type.
func NewKeyProtectorFromConfig(cfg config.KeyProtectionConfig) (sv.KeyProtector, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeKeyProtector(cfg), nil
	case "plain":
		return PlainKeyProtector{}, nil
	case "test":
		return NewTestKeyProtector(), nil
	default:
		return nil, fmt.Errorf("unknown key protection type: %q", cfg.Type)
	}
}
