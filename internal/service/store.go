package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

// Store 服务层依赖的持久化接口，由 repository.SQLRepository 实现
type Store interface {
	SaveUser(ctx context.Context, u *model.User) error
	FindUser(ctx context.Context, id string) (*model.User, error)
	CountEligibleUsers(ctx context.Context, restriction model.VoterRestriction) (int, error)

	CreateElection(ctx context.Context, e *model.Election) error
	FindElection(ctx context.Context, id string) (*model.Election, error)
	ListElections(ctx context.Context, activeOnly bool) ([]*model.Election, error)
	BatchUpdateElectionStatus(ctx context.Context, now time.Time) (int64, error)
	CancelElection(ctx context.Context, id string) error
	MarkOfficial(ctx context.Context, id string) error
	ArchiveElection(ctx context.Context, id string) error

	CreatePosition(ctx context.Context, p *model.Position) error
	FindPosition(ctx context.Context, id string) (*model.Position, error)
	ListPositions(ctx context.Context, electionID string) ([]*model.Position, error)

	InsertCandidate(ctx context.Context, c *model.Candidate) error
	FindCandidate(ctx context.Context, id string) (*model.Candidate, error)
	FindCandidateByUser(ctx context.Context, userID, electionID string) (*model.Candidate, error)
	ListCandidates(ctx context.Context, electionID string) ([]*model.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, from, to model.CandidateStatus) error

	InsertVote(ctx context.Context, v *model.Vote) error
	HasVoted(ctx context.Context, voterID, electionID, positionID string) (bool, error)
	VotedPositions(ctx context.Context, voterID, electionID string) ([]string, error)
	CountVotesByCandidate(ctx context.Context, electionID string) ([]model.VoteCount, error)
	CountDistinctVoters(ctx context.Context, electionID string) (int, error)
}

// ResultsCache 正式结果缓存，由 repository.RedisRepository 实现
type ResultsCache interface {
	GetOfficialResults(ctx context.Context, electionID string) (*model.ElectionResults, bool, error)
	SetOfficialResults(ctx context.Context, results *model.ElectionResults) error
}

// findElectionPosition 职位不存在或不属于该选举时返回 ErrInvalidPosition
func findElectionPosition(ctx context.Context, store Store, electionID, positionID string) (*model.Position, error) {
	p, err := store.FindPosition(ctx, positionID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if p == nil || p.ElectionID != electionID {
		return nil, fmt.Errorf("职位 %s: %w", positionID, model.ErrInvalidPosition)
	}
	return p, nil
}
