package eligibility

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

var (
	student     = &model.User{ID: "s", Year: "3", Course: "BSCS"}
	faculty     = &model.User{ID: "f", Institute: "ICS", Department: "CS"}
	nonTeaching = &model.User{ID: "n", Unit: "Registrar"}
	unknown     = &model.User{ID: "u"}
)

func TestClassifyByFields(t *testing.T) {
	require.Equal(t, model.UserTypeStudent, Classify(student))
	require.Equal(t, model.UserTypeFaculty, Classify(faculty))
	require.Equal(t, model.UserTypeNonTeaching, Classify(nonTeaching))
	require.Equal(t, model.UserTypeUnknown, Classify(unknown))
	require.Equal(t, model.UserTypeUnknown, Classify(nil))
	require.Equal(t, model.UserTypeUnknown, Classify(&model.User{Section: "   "}))
}

func TestClassifyFirstMatchWins(t *testing.T) {
	u := &model.User{Section: "A", Department: "CS", Unit: "HR"}
	require.Equal(t, model.UserTypeStudent, Classify(u))

	u = &model.User{Department: "CS", Unit: "HR"}
	require.Equal(t, model.UserTypeFaculty, Classify(u))
}

func TestClassifyPrefersExplicitType(t *testing.T) {
	u := &model.User{UserType: model.UserTypeFaculty, Year: "2"}
	require.Equal(t, model.UserTypeFaculty, Classify(u))

	u = &model.User{UserType: "ALIEN", Year: "2"}
	require.Equal(t, model.UserTypeStudent, Classify(u))
}

func TestIsEligible(t *testing.T) {
	cases := []struct {
		restriction model.VoterRestriction
		user        *model.User
		want        bool
	}{
		{model.RestrictionAll, unknown, true},
		{model.RestrictionAll, nil, true},
		{model.RestrictionStudents, student, true},
		{model.RestrictionStudents, faculty, false},
		{model.RestrictionFaculty, faculty, true},
		{model.RestrictionFaculty, nonTeaching, false},
		{model.RestrictionNonTeaching, nonTeaching, true},
		{model.RestrictionNonTeaching, student, false},
		{model.RestrictionStudentsFaculty, student, true},
		{model.RestrictionStudentsFaculty, faculty, true},
		{model.RestrictionStudentsFaculty, nonTeaching, false},
		{model.RestrictionStudents, unknown, false},
		{model.RestrictionStudentsFaculty, unknown, false},
		{"BOGUS", student, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, IsEligible(c.user, c.restriction), "%s / %+v", c.restriction, c.user)
	}
}

func TestAllowedTypes(t *testing.T) {
	types, unrestricted := AllowedTypes(model.RestrictionAll)
	require.True(t, unrestricted)
	require.Empty(t, types)

	types, unrestricted = AllowedTypes(model.RestrictionStudentsFaculty)
	require.False(t, unrestricted)
	require.Equal(t, []model.UserType{model.UserTypeStudent, model.UserTypeFaculty}, types)

	types, unrestricted = AllowedTypes("BOGUS")
	require.False(t, unrestricted)
	require.Empty(t, types)
}
