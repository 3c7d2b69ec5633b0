package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRollAssignmentsDenseAndOrdered(t *testing.T) {
	members := []ScopeMember{
		{EnrollmentID: "e3", FirstName: "Zack", LastName: "Adams"},
		{EnrollmentID: "e1", FirstName: "Aaron", LastName: "Young"},
		{EnrollmentID: "e2", FirstName: "Bobby", LastName: "Brown"},
	}

	assignments := BuildRollAssignments(members)
	require.Len(t, assignments, 3)

	assert.Equal(t, "e1", assignments[0].EnrollmentID)
	assert.Equal(t, "e2", assignments[1].EnrollmentID)
	assert.Equal(t, "e3", assignments[2].EnrollmentID)
	for i, a := range assignments {
		assert.Equal(t, i+1, a.RollNumber)
	}
}

func TestBuildRollAssignmentsLastNameThenIDTieBreak(t *testing.T) {
	members := []ScopeMember{
		{EnrollmentID: "e2", FirstName: "Maya", LastName: "Brown"},
		{EnrollmentID: "e1", FirstName: "Maya", LastName: "Adams"},
		{EnrollmentID: "e4", FirstName: "Maya", LastName: "Brown"},
		{EnrollmentID: "e3", FirstName: "Maya", LastName: "Brown"},
	}

	assignments := BuildRollAssignments(members)
	require.Len(t, assignments, 4)

	assert.Equal(t, "e1", assignments[0].EnrollmentID)
	assert.Equal(t, "e2", assignments[1].EnrollmentID)
	assert.Equal(t, "e3", assignments[2].EnrollmentID)
	assert.Equal(t, "e4", assignments[3].EnrollmentID)
}

func TestBuildRollAssignmentsByteWiseOrdering(t *testing.T) {
	// Comparison is byte-wise: uppercase letters sort before lowercase.
	members := []ScopeMember{
		{EnrollmentID: "e1", FirstName: "ana", LastName: "x"},
		{EnrollmentID: "e2", FirstName: "Zoe", LastName: "x"},
	}

	assignments := BuildRollAssignments(members)
	require.Len(t, assignments, 2)
	assert.Equal(t, "e2", assignments[0].EnrollmentID)
	assert.Equal(t, "e1", assignments[1].EnrollmentID)
}

func TestBuildRollAssignmentsIdempotent(t *testing.T) {
	build := func() []RollAssignment {
		return BuildRollAssignments([]ScopeMember{
			{EnrollmentID: "e2", FirstName: "Bobby", LastName: "Brown"},
			{EnrollmentID: "e1", FirstName: "Aaron", LastName: "Young"},
			{EnrollmentID: "e3", FirstName: "Zack", LastName: "Adams"},
		})
	}

	first := build()
	second := build()
	assert.Equal(t, first, second)
}

func TestBuildRollAssignmentsEmpty(t *testing.T) {
	assignments := BuildRollAssignments(nil)
	assert.Empty(t, assignments)
}

func TestRollScopeKey(t *testing.T) {
	scope := RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}
	assert.Equal(t, "cs-1:ay-1", scope.Key())

	other := RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-2"}
	assert.NotEqual(t, scope.Key(), other.Key())
}
