package organization

import (
	"fmt"
	"strings"
)

// Type classifies an organization within its branch.
type Type string

const (
	TypeBranch            Type = "branch"
	TypeDepartment        Type = "department"
	TypeIndependentAgency Type = "independent_agency"
	TypeBureau            Type = "bureau"
	TypeOffice            Type = "office"
	TypeCommission        Type = "commission"
	TypeBoard             Type = "board"
)

var types = map[Type]struct{}{
	TypeBranch:            {},
	TypeDepartment:        {},
	TypeIndependentAgency: {},
	TypeBureau:            {},
	TypeOffice:            {},
	TypeCommission:        {},
	TypeBoard:             {},
}

func (t Type) IsValid() bool {
	_, ok := types[t]
	return ok
}

func (t Type) String() string {
	return string(t)
}

// ParseType parses an organization type case-insensitively.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid orgType %q: must be one of branch, department, independent_agency, bureau, office, commission, board", value)
	}
	return t, nil
}

// InferType derives an organization type from name patterns. Rules are
// evaluated in a fixed order and the first match wins; re-running inference
// on the same name always yields the same type.
func InferType(name string) Type {
	lower := strings.ToLower(name)

	switch {
	case strings.HasPrefix(lower, "department of"):
		return TypeDepartment
	case strings.Contains(lower, "agency") || strings.Contains(lower, "administration"):
		return TypeIndependentAgency
	case strings.Contains(lower, "bureau"):
		return TypeBureau
	case strings.Contains(lower, "office"):
		return TypeOffice
	case strings.Contains(lower, "commission"):
		return TypeCommission
	case strings.Contains(lower, "board"):
		return TypeBoard
	default:
		return TypeIndependentAgency
	}
}
