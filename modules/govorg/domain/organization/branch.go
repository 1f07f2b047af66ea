package organization

import (
	"fmt"
	"strings"
)

// Branch is the constitutional branch an organization belongs to. The set is
// closed at compile time; extending it is a schema migration, not a runtime
// concern.
type Branch string

const (
	BranchExecutive   Branch = "executive"
	BranchLegislative Branch = "legislative"
	BranchJudicial    Branch = "judicial"
)

var branches = map[Branch]struct{}{
	BranchExecutive:   {},
	BranchLegislative: {},
	BranchJudicial:    {},
}

func (b Branch) IsValid() bool {
	_, ok := branches[b]
	return ok
}

func (b Branch) String() string {
	return string(b)
}

// ParseBranch parses a branch value case-insensitively.
func ParseBranch(value string) (Branch, error) {
	b := Branch(strings.ToLower(strings.TrimSpace(value)))
	if !b.IsValid() {
		return "", fmt.Errorf("invalid branch %q: must be one of executive, legislative, judicial", value)
	}
	return b, nil
}
