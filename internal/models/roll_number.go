package models

import (
	"fmt"
	"sort"
)

// RollScope identifies one independent roll-numbering domain: a class section
// within an academic year. The same roll number may appear in two different
// scopes.
type RollScope struct {
	ClassSectionID string `json:"class_section_id"`
	AcademicYearID string `json:"academic_year_id"`
}

// Key returns a stable identifier for the scope, used for advisory locking
// and job labelling.
func (s RollScope) Key() string {
	return fmt.Sprintf("%s:%s", s.ClassSectionID, s.AcademicYearID)
}

// ScopeMember is one qualifying enrollment of a scope: active, not
// soft-deleted, joined to the student's person name.
type ScopeMember struct {
	EnrollmentID string `db:"enrollment_id"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
}

// RollAssignment pairs an enrollment with its computed roll number.
type RollAssignment struct {
	EnrollmentID string
	RollNumber   int
}

// SortScopeMembers orders members by (first_name, last_name) ascending with
// the enrollment id as the tie-break. Comparison is byte-wise so the order is
// identical regardless of the database locale.
func SortScopeMembers(members []ScopeMember) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.EnrollmentID < b.EnrollmentID
	})
}

// BuildRollAssignments sorts the qualifying members of a scope and assigns
// the dense range 1..N in that order. The input slice is sorted in place.
func BuildRollAssignments(members []ScopeMember) []RollAssignment {
	SortScopeMembers(members)
	assignments := make([]RollAssignment, len(members))
	for i, m := range members {
		assignments[i] = RollAssignment{EnrollmentID: m.EnrollmentID, RollNumber: i + 1}
	}
	return assignments
}
