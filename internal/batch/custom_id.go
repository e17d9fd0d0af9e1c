package batch

import (
	"fmt"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/domain"
)

const customIDSeparator = ":"

// CustomID encodes an item identity and a field key into a correlation id.
func CustomID(identity string, field domain.FieldKey) string {
	return identity + customIDSeparator + string(field)
}

// ParseCustomID recovers the identity and field a correlation id was built from.
func ParseCustomID(id string) (string, domain.FieldKey, error) {
	identity, field, ok := strings.Cut(id, customIDSeparator)
	if !ok || identity == "" || field == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCustomID, id)
	}
	return identity, domain.FieldKey(field), nil
}
