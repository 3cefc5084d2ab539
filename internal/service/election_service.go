package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lvdashuaibi/campusvote/internal/clock"
	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/notify"
)

// PositionInput 新建职位参数
type PositionInput struct {
	Title       string
	WinnerCount int
}

// CreateElectionInput 新建选举参数
type CreateElectionInput struct {
	Title             string
	Description       string
	CampaignStartDate time.Time
	CampaignEndDate   time.Time
	ElectionStartDate time.Time
	ElectionEndDate   time.Time
	VoterRestriction  model.VoterRestriction
	Positions         []PositionInput
}

type ElectionService struct {
	store      Store
	clock      clock.Clock
	sync       *StatusSynchronizer
	dispatcher notify.Dispatcher
}

func NewElectionService(store Store, clk clock.Clock, sync *StatusSynchronizer, dispatcher notify.Dispatcher) *ElectionService {
	return &ElectionService{
		store:      store,
		clock:      clk,
		sync:       sync,
		dispatcher: dispatcher,
	}
}

// SyncStatuses 立即按当前时间刷新所有选举状态
func (s *ElectionService) SyncStatuses(ctx context.Context) error {
	return s.sync.Sync(ctx)
}

func validatePosition(in PositionInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("职位名称不能为空: %w", model.ErrValidation)
	}
	if in.WinnerCount < 1 {
		return fmt.Errorf("职位 %s 当选人数必须大于等于1: %w", in.Title, model.ErrValidation)
	}
	return nil
}

// validateElection 时间先按存储精度归一化再校验
func validateElection(in *CreateElectionInput) error {
	in.CampaignStartDate = model.Timestamp(in.CampaignStartDate)
	in.CampaignEndDate = model.Timestamp(in.CampaignEndDate)
	in.ElectionStartDate = model.Timestamp(in.ElectionStartDate)
	in.ElectionEndDate = model.Timestamp(in.ElectionEndDate)

	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("选举标题不能为空: %w", model.ErrValidation)
	}
	if in.VoterRestriction == "" {
		in.VoterRestriction = model.RestrictionAll
	}
	if !in.VoterRestriction.Valid() {
		return fmt.Errorf("无效的投票人限制 %q: %w", in.VoterRestriction, model.ErrValidation)
	}
	if !in.CampaignStartDate.Before(in.CampaignEndDate) {
		return fmt.Errorf("竞选开始时间必须早于竞选结束时间: %w", model.ErrValidation)
	}
	if in.CampaignEndDate.After(in.ElectionStartDate) {
		return fmt.Errorf("竞选结束时间不能晚于投票开始时间: %w", model.ErrValidation)
	}
	if !in.ElectionStartDate.Before(in.ElectionEndDate) {
		return fmt.Errorf("投票开始时间必须早于投票结束时间: %w", model.ErrValidation)
	}
	for _, p := range in.Positions {
		if err := validatePosition(p); err != nil {
			return err
		}
	}
	return nil
}

// CreateElection 创建选举，初始状态由当前时间推导
func (s *ElectionService) CreateElection(ctx context.Context, in CreateElectionInput) (*model.Election, error) {
	if err := validateElection(&in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	e := &model.Election{
		ID:                uuid.NewString(),
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		CampaignStartDate: in.CampaignStartDate,
		CampaignEndDate:   in.CampaignEndDate,
		ElectionStartDate: in.ElectionStartDate,
		ElectionEndDate:   in.ElectionEndDate,
		VoterRestriction:  in.VoterRestriction,
		IsActive:          true,
		CreatedAt:         now,
	}
	e.Status = model.DeriveStatus(e, now)

	for i, p := range in.Positions {
		e.Positions = append(e.Positions, &model.Position{
			ID:          uuid.NewString(),
			ElectionID:  e.ID,
			Title:       strings.TrimSpace(p.Title),
			WinnerCount: p.WinnerCount,
			SortOrder:   i,
			CreatedAt:   now,
		})
	}

	if err := s.store.CreateElection(ctx, e); err != nil {
		return nil, err
	}

	log.Printf("选举已创建: id=%s, 标题=%s, 职位数=%d", e.ID, e.Title, len(e.Positions))
	return e, nil
}

// AddPosition 为选举新增职位，投票开始后职位不可再变更
func (s *ElectionService) AddPosition(ctx context.Context, electionID string, in PositionInput) (*model.Position, error) {
	e, err := s.store.FindElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := validatePosition(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if e.Status == model.StatusCancelled || !model.Timestamp(now).Before(e.ElectionStartDate) {
		return nil, fmt.Errorf("选举 %s 已开始投票或已取消: %w", electionID, model.ErrInvalidTransition)
	}

	existing, err := s.store.ListPositions(ctx, electionID)
	if err != nil {
		return nil, err
	}

	p := &model.Position{
		ID:          uuid.NewString(),
		ElectionID:  electionID,
		Title:       strings.TrimSpace(in.Title),
		WinnerCount: in.WinnerCount,
		SortOrder:   len(existing),
		CreatedAt:   now,
	}
	if err := s.store.CreatePosition(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetElection 获取选举及其职位，返回前刷新状态
func (s *ElectionService) GetElection(ctx context.Context, id string) (*model.Election, error) {
	s.sync.syncQuietly(ctx)

	e, err := s.store.FindElection(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Status = model.DeriveStatus(e, s.clock.Now())

	e.Positions, err = s.store.ListPositions(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListPositions 按顺序列出选举的职位
func (s *ElectionService) ListPositions(ctx context.Context, electionID string) ([]*model.Position, error) {
	return s.store.ListPositions(ctx, electionID)
}

// ListElections 列出选举，返回前刷新状态
func (s *ElectionService) ListElections(ctx context.Context, activeOnly bool) ([]*model.Election, error) {
	s.sync.syncQuietly(ctx)

	elections, err := s.store.ListElections(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, e := range elections {
		e.Status = model.DeriveStatus(e, now)
	}
	return elections, nil
}

// CancelElection 取消选举。取消状态不会被自动刷新覆盖
func (s *ElectionService) CancelElection(ctx context.Context, id string) error {
	if err := s.store.CancelElection(ctx, id); err != nil {
		return err
	}
	log.Printf("选举已取消: id=%s", id)
	return nil
}

// ArchiveElection 归档选举
func (s *ElectionService) ArchiveElection(ctx context.Context, id string) error {
	return s.store.ArchiveElection(ctx, id)
}

// MarkOfficial 将已结束选举的结果标记为正式，并通知所有候选人
func (s *ElectionService) MarkOfficial(ctx context.Context, id string) error {
	if err := s.sync.Sync(ctx); err != nil {
		return err
	}

	e, err := s.store.FindElection(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.MarkOfficial(ctx, id); err != nil {
		return err
	}
	log.Printf("选举结果已正式确认: id=%s", id)

	s.notifyOfficial(ctx, e)
	return nil
}

func (s *ElectionService) notifyOfficial(ctx context.Context, e *model.Election) {
	candidates, err := s.store.ListCandidates(ctx, e.ID)
	if err != nil {
		log.Printf("查询候选人失败，跳过正式结果通知: %v", err)
		return
	}

	now := s.clock.Now()
	for _, c := range candidates {
		if c.Status != model.CandidateApproved {
			continue
		}
		u, err := s.store.FindUser(ctx, c.UserID)
		if err != nil {
			log.Printf("查询候选人用户 %s 失败: %v", c.UserID, err)
			continue
		}
		n := notify.ResultsOfficial(u.Email, e.Title, now)
		n.ElectionID = e.ID
		notify.Send(ctx, s.dispatcher, n)
	}
}
