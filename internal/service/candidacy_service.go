package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/lvdashuaibi/campusvote/internal/clock"
	"github.com/lvdashuaibi/campusvote/internal/model"
)

// RegisterCandidacyInput 报名参数
type RegisterCandidacyInput struct {
	UserID     string
	ElectionID string
	PositionID string
	Platform   string
	PhotoURL   string
}

type CandidacyService struct {
	store Store
	clock clock.Clock
}

func NewCandidacyService(store Store, clk clock.Clock) *CandidacyService {
	return &CandidacyService{store: store, clock: clk}
}

// RegisterCandidacy 登记报名。按顺序检查，遇到第一个失败即返回：
// 选举存在 → 政见与照片非空 → 本人在该选举中没有报名 → 职位属于该选举 → 处于竞选期。
func (s *CandidacyService) RegisterCandidacy(ctx context.Context, in RegisterCandidacyInput) (*model.Candidate, error) {
	e, err := s.store.FindElection(ctx, in.ElectionID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.PhotoURL) == "" || strings.TrimSpace(in.Platform) == "" {
		return nil, fmt.Errorf("政见和照片不能为空: %w", model.ErrValidation)
	}

	existing, err := s.store.FindCandidateByUser(ctx, in.UserID, in.ElectionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("用户 %s 已报名职位 %s: %w", in.UserID, existing.PositionID, model.ErrDuplicateCandidacy)
	}

	if _, err := findElectionPosition(ctx, s.store, in.ElectionID, in.PositionID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if e.Status == model.StatusCancelled || !e.CampaignOpen(now) {
		return nil, fmt.Errorf("选举 %s: %w", e.ID, model.ErrCampaignClosed)
	}

	c := &model.Candidate{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		ElectionID: in.ElectionID,
		PositionID: in.PositionID,
		Status:     model.CandidatePending,
		Platform:   strings.TrimSpace(in.Platform),
		ImageURL:   strings.TrimSpace(in.PhotoURL),
		IsActive:   true,
		CreatedAt:  now,
	}

	// 并发报名由唯一约束兜底，返回 ErrDuplicateCandidacy
	if err := s.store.InsertCandidate(ctx, c); err != nil {
		return nil, err
	}

	log.Printf("候选人报名成功: 用户=%s, 选举=%s, 职位=%s", c.UserID, c.ElectionID, c.PositionID)
	return c, nil
}

// ReviewCandidacy 审核报名，只允许从待审核转为通过或驳回
func (s *CandidacyService) ReviewCandidacy(ctx context.Context, candidateID string, decision model.CandidateStatus) (*model.Candidate, error) {
	if decision != model.CandidateApproved && decision != model.CandidateRejected {
		return nil, fmt.Errorf("无效的审核结果 %q: %w", decision, model.ErrValidation)
	}
	if err := s.store.UpdateCandidateStatus(ctx, candidateID, model.CandidatePending, decision); err != nil {
		return nil, err
	}
	log.Printf("候选人审核完成: id=%s, 结果=%s", candidateID, decision)
	return s.store.FindCandidate(ctx, candidateID)
}

// ListCandidates 列出选举的候选人
func (s *CandidacyService) ListCandidates(ctx context.Context, electionID string) ([]*model.Candidate, error) {
	if _, err := s.store.FindElection(ctx, electionID); err != nil {
		return nil, err
	}
	return s.store.ListCandidates(ctx, electionID)
}
