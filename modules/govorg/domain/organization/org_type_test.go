package organization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferType(t *testing.T) {
	cases := []struct {
		name     string
		expected Type
	}{
		{"Department of Justice", TypeDepartment},
		{"department of the interior", TypeDepartment},
		{"Environmental Protection Agency", TypeIndependentAgency},
		{"National Aeronautics and Space Administration", TypeIndependentAgency},
		{"Federal Bureau of Investigation", TypeBureau},
		{"Government Accountability Office", TypeOffice},
		{"Federal Trade Commission", TypeCommission},
		{"National Labor Relations Board", TypeBoard},
		{"Smithsonian Institution", TypeIndependentAgency},
		{"", TypeIndependentAgency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, InferType(tc.name))
		})
	}
}

func TestInferType_FirstRuleWins(t *testing.T) {
	// "Department of" outranks the "agency" substring rule.
	assert.Equal(t, TypeDepartment, InferType("Department of Agency Affairs"))
	// "bureau" outranks "office" which appears later in the rule order.
	assert.Equal(t, TypeBureau, InferType("Bureau of the Budget Office"))
}

func TestInferType_Deterministic(t *testing.T) {
	name := "Office of Management and Budget"
	first := InferType(name)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, InferType(name))
	}
}

func TestParseBranch(t *testing.T) {
	b, err := ParseBranch("EXECUTIVE")
	require.NoError(t, err)
	assert.Equal(t, BranchExecutive, b)

	b, err = ParseBranch("judicial")
	require.NoError(t, err)
	assert.Equal(t, BranchJudicial, b)

	_, err = ParseBranch("municipal")
	require.Error(t, err)
}

func TestParseType(t *testing.T) {
	got, err := ParseType("Independent_Agency")
	require.NoError(t, err)
	assert.Equal(t, TypeIndependentAgency, got)

	_, err = ParseType("ministry")
	require.Error(t, err)
}

func TestOrganization_Defaults(t *testing.T) {
	org := New("Department of Justice", BranchExecutive, TypeDepartment)

	assert.NotEqual(t, "", org.ID().String())
	assert.Equal(t, 1, org.OrgLevel())
	assert.True(t, org.IsActive())
	assert.Nil(t, org.ParentID())
}
