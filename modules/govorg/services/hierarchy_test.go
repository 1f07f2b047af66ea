package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

func TestHierarchyLinker_RespectsCuratedParent(t *testing.T) {
	repo := newMemRepo()
	curated := uuid.New()
	child := organization.New("Federal Bureau of Investigation",
		organization.BranchExecutive, organization.TypeBureau,
		organization.WithParentID(&curated))
	parent := organization.New("Department of Justice",
		organization.BranchExecutive, organization.TypeDepartment)
	_, err := repo.Save(context.Background(), child)
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), parent)
	require.NoError(t, err)

	linker := NewHierarchyLinker(repo)
	warning, err := linker.Link(context.Background(), parentLink{
		ChildID:   child.ID(),
		ParentID:  parent.ID(),
		ChildName: child.OfficialName(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
	assert.Equal(t, curated, *child.ParentID())
}

func TestHierarchyLinker_RefusesCycles(t *testing.T) {
	repo := newMemRepo()
	a := organization.New("A", organization.BranchExecutive, organization.TypeOffice)
	b := organization.New("B", organization.BranchExecutive, organization.TypeOffice)
	c := organization.New("C", organization.BranchExecutive, organization.TypeOffice)
	for _, org := range []*organization.Organization{a, b, c} {
		_, err := repo.Save(context.Background(), org)
		require.NoError(t, err)
	}

	linker := NewHierarchyLinker(repo)
	link := func(child, parent *organization.Organization) string {
		warning, err := linker.Link(context.Background(), parentLink{
			ChildID:   child.ID(),
			ParentID:  parent.ID(),
			ChildName: child.OfficialName(),
		})
		require.NoError(t, err)
		return warning
	}

	assert.Empty(t, link(b, a))
	assert.Empty(t, link(c, b))

	// a -> c would close the loop a <- b <- c.
	warning := link(a, c)
	assert.Contains(t, warning, "cycle")
	assert.Nil(t, a.ParentID())
}

func TestHierarchyLinker_RejectsSelfParent(t *testing.T) {
	repo := newMemRepo()
	org := organization.New("Department of Justice",
		organization.BranchExecutive, organization.TypeDepartment)
	_, err := repo.Save(context.Background(), org)
	require.NoError(t, err)

	linker := NewHierarchyLinker(repo)
	warning, err := linker.Link(context.Background(), parentLink{
		ChildID:   org.ID(),
		ParentID:  org.ID(),
		ChildName: org.OfficialName(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
	assert.Nil(t, org.ParentID())
}

func TestHierarchyLinker_BumpsOrgLevel(t *testing.T) {
	repo := newMemRepo()
	child := organization.New("Federal Bureau of Investigation",
		organization.BranchExecutive, organization.TypeBureau)
	parent := organization.New("Department of Justice",
		organization.BranchExecutive, organization.TypeDepartment)
	deep := organization.New("Behavioral Analysis Unit",
		organization.BranchExecutive, organization.TypeOffice,
		organization.WithOrgLevel(4))
	for _, org := range []*organization.Organization{child, parent, deep} {
		_, err := repo.Save(context.Background(), org)
		require.NoError(t, err)
	}

	linker := NewHierarchyLinker(repo)
	_, err := linker.Link(context.Background(), parentLink{
		ChildID: child.ID(), ParentID: parent.ID(), ChildName: child.OfficialName(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, child.OrgLevel())

	// A deeper record keeps its level.
	_, err = linker.Link(context.Background(), parentLink{
		ChildID: deep.ID(), ParentID: parent.ID(), ChildName: deep.OfficialName(),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, deep.OrgLevel())
}
