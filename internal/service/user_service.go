package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lvdashuaibi/campusvote/internal/eligibility"
	"github.com/lvdashuaibi/campusvote/internal/model"
)

// UserService 保存身份服务同步过来的用户资料
type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// SaveUser 写入或覆盖用户资料。未显式给出类别时按资料字段推导一次并保存
func (s *UserService) SaveUser(ctx context.Context, u *model.User) (*model.User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return nil, fmt.Errorf("用户ID不能为空: %w", model.ErrValidation)
	}
	switch u.UserType {
	case model.UserTypeUnknown:
		u.UserType = eligibility.Classify(u)
	case model.UserTypeStudent, model.UserTypeFaculty, model.UserTypeNonTeaching:
	default:
		return nil, fmt.Errorf("无效的用户类别 %q: %w", u.UserType, model.ErrValidation)
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// FindUser 获取用户
func (s *UserService) FindUser(ctx context.Context, id string) (*model.User, error) {
	return s.store.FindUser(ctx, id)
}
