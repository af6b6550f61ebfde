// Package identifier validates and canonicalizes raw vehicle search strings
// into typed identifiers. Invalid input never produces an Identifier.
package identifier

import (
	"fmt"
	"strings"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

type Kind string

const (
	KindVIN Kind = "vin"
	KindVRM Kind = "vrm"
)

const (
	VINLength = 17
	VRMMinLen = 2
	VRMMaxLen = 15
)

type Identifier struct {
	Kind  Kind
	Value string
}

// Key is the record-store index key. Kinds are namespaced so a VRM that
// happens to look like a VIN prefix can never collide with one.
func (id Identifier) Key() string {
	return string(id.Kind) + ":" + id.Value
}

// Normalize strips whitespace, upper-cases, and shape-checks raw according
// to kind. It never truncates or pads.
func Normalize(kind Kind, raw string) (Identifier, error) {
	switch kind {
	case KindVIN:
		return normalizeVIN(raw)
	case KindVRM:
		return normalizeVRM(raw)
	default:
		return Identifier{}, vehicle.NewInvalidIdentifierError(fmt.Sprintf("unknown search kind %q", kind))
	}
}

func normalizeVIN(raw string) (Identifier, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if len(v) != VINLength {
		return Identifier{}, vehicle.NewInvalidIdentifierError(fmt.Sprintf("VIN must be exactly %d characters", VINLength))
	}
	for i := 0; i < len(v); i++ {
		if !validVINChar(v[i]) {
			return Identifier{}, vehicle.NewInvalidIdentifierError(fmt.Sprintf("VIN contains invalid character %q", v[i]))
		}
	}
	return Identifier{Kind: KindVIN, Value: v}, nil
}

func normalizeVRM(raw string) (Identifier, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	v := b.String()
	if len(v) < VRMMinLen || len(v) > VRMMaxLen {
		return Identifier{}, vehicle.NewInvalidIdentifierError(fmt.Sprintf("VRM must be between %d and %d characters", VRMMinLen, VRMMaxLen))
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return Identifier{}, vehicle.NewInvalidIdentifierError(fmt.Sprintf("VRM contains invalid character %q", c))
		}
	}
	return Identifier{Kind: KindVRM, Value: v}, nil
}

// VIN alphabet excludes I, O and Q.
func validVINChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return c != 'I' && c != 'O' && c != 'Q'
	default:
		return false
	}
}
