package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lvdashuaibi/campusvote/internal/clock"
	"github.com/lvdashuaibi/campusvote/internal/eligibility"
	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/notify"
)

// CastVoteInput 投票参数
type CastVoteInput struct {
	VoterID     string
	ElectionID  string
	PositionID  string
	CandidateID string
}

// VoteService 投票服务。选票只能新增，不提供修改和删除。
type VoteService struct {
	store      Store
	clock      clock.Clock
	dispatcher notify.Dispatcher
}

func NewVoteService(store Store, clk clock.Clock, dispatcher notify.Dispatcher) *VoteService {
	return &VoteService{store: store, clock: clk, dispatcher: dispatcher}
}

// CastVote 投票。校验按固定顺序进行，返回第一个失败的原因：
// 选举存在 → 投票窗口 → 职位 → 候选人 → 投票人资格 → 重复投票。
// 同一投票人并发为同一职位投票时，最终只有一张选票落库，其余返回 ErrAlreadyVoted。
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (*model.Vote, error) {
	e, err := s.store.FindElection(ctx, in.ElectionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if e.Status == model.StatusCancelled || !e.VotingOpen(now) {
		return nil, fmt.Errorf("选举 %s: %w", e.ID, model.ErrVotingWindowClosed)
	}

	pos, err := findElectionPosition(ctx, s.store, e.ID, in.PositionID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.FindCandidate(ctx, in.CandidateID)
	if err != nil {
		return nil, err
	}
	if c.ElectionID != e.ID || c.PositionID != pos.ID || !c.Votable() {
		return nil, fmt.Errorf("候选人 %s: %w", c.ID, model.ErrCandidateNotEligible)
	}

	voter, err := s.store.FindUser(ctx, in.VoterID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if voter == nil || !voter.IsActive || !eligibility.IsEligible(voter, e.VoterRestriction) {
		return nil, fmt.Errorf("投票人 %s: %w", in.VoterID, model.ErrVoterNotEligible)
	}

	// 预检查只是快速失败，真正的保证来自唯一约束
	voted, err := s.store.HasVoted(ctx, in.VoterID, e.ID, pos.ID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, fmt.Errorf("职位 %s: %w", pos.ID, model.ErrAlreadyVoted)
	}

	v := &model.Vote{
		ID:          uuid.NewString(),
		VoterID:     in.VoterID,
		ElectionID:  e.ID,
		PositionID:  pos.ID,
		CandidateID: c.ID,
		CreatedAt:   now,
	}
	if err := s.store.InsertVote(ctx, v); err != nil {
		return nil, err
	}

	log.Printf("投票成功: 选举=%s, 职位=%s, 投票人=%s", v.ElectionID, v.PositionID, v.VoterID)

	n := notify.VoteReceipt(voter.Email, e.Title, pos.Title, now)
	n.ElectionID = e.ID
	notify.Send(ctx, s.dispatcher, n)

	return v, nil
}

// VotedPositions 返回投票人在该选举中已投票的职位ID
func (s *VoteService) VotedPositions(ctx context.Context, voterID, electionID string) ([]string, error) {
	if _, err := s.store.FindElection(ctx, electionID); err != nil {
		return nil, err
	}
	return s.store.VotedPositions(ctx, voterID, electionID)
}
