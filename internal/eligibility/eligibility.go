package eligibility

import (
	"strings"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

// Classify 返回用户类别。优先使用显式的UserType，
// 缺失时按字段推断：学生字段 > 教职工字段 > 部门字段，先匹配者优先。
func Classify(u *model.User) model.UserType {
	if u == nil {
		return model.UserTypeUnknown
	}
	switch u.UserType {
	case model.UserTypeStudent, model.UserTypeFaculty, model.UserTypeNonTeaching:
		return u.UserType
	}

	switch {
	case present(u.Year) || present(u.Course) || present(u.Section):
		return model.UserTypeStudent
	case present(u.Institute) || present(u.Department):
		return model.UserTypeFaculty
	case present(u.Unit):
		return model.UserTypeNonTeaching
	default:
		return model.UserTypeUnknown
	}
}

// IsEligible 判断用户是否满足选举的投票人限制
func IsEligible(u *model.User, restriction model.VoterRestriction) bool {
	types, unrestricted := AllowedTypes(restriction)
	if unrestricted {
		return true
	}
	t := Classify(u)
	for _, allowed := range types {
		if t == allowed {
			return true
		}
	}
	return false
}

// AllowedTypes 返回限制允许的用户类别。unrestricted为true时不限类别，
// 无效的限制返回空列表
func AllowedTypes(restriction model.VoterRestriction) (types []model.UserType, unrestricted bool) {
	switch restriction {
	case model.RestrictionAll:
		return nil, true
	case model.RestrictionStudents:
		return []model.UserType{model.UserTypeStudent}, false
	case model.RestrictionFaculty:
		return []model.UserType{model.UserTypeFaculty}, false
	case model.RestrictionNonTeaching:
		return []model.UserType{model.UserTypeNonTeaching}, false
	case model.RestrictionStudentsFaculty:
		return []model.UserType{model.UserTypeStudent, model.UserTypeFaculty}, false
	default:
		return nil, false
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
