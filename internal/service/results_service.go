package service

import (
	"context"
	"log"

	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/tally"
)

// ResultsService 计票与投票率统计。
// 结果始终由选票账本推导，只有正式结果会写入缓存。
type ResultsService struct {
	store Store
	cache ResultsCache
	sync  *StatusSynchronizer
}

// NewResultsService cache 可以为 nil
func NewResultsService(store Store, cache ResultsCache, sync *StatusSynchronizer) *ResultsService {
	return &ResultsService{store: store, cache: cache, sync: sync}
}

// ComputeResults 计算选举结果，选举进行中也可以查询实时结果
func (s *ResultsService) ComputeResults(ctx context.Context, electionID string) (*model.ElectionResults, error) {
	s.sync.syncQuietly(ctx)

	e, err := s.store.FindElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	if e.IsOfficial && s.cache != nil {
		cached, ok, err := s.cache.GetOfficialResults(ctx, electionID)
		if err != nil {
			log.Printf("读取正式结果缓存失败，改为重新计算: 选举=%s, 错误=%v", electionID, err)
		} else if ok {
			return cached, nil
		}
	}

	results, err := s.compute(ctx, e)
	if err != nil {
		return nil, err
	}

	if e.IsOfficial && s.cache != nil {
		if err := s.cache.SetOfficialResults(ctx, results); err != nil {
			log.Printf("写入正式结果缓存失败: 选举=%s, 错误=%v", electionID, err)
		}
	}
	return results, nil
}

func (s *ResultsService) compute(ctx context.Context, e *model.Election) (*model.ElectionResults, error) {
	positions, err := s.store.ListPositions(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.ListCandidates(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	voteCounts, err := s.store.CountVotesByCandidate(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(voteCounts))
	for _, vc := range voteCounts {
		counts[vc.CandidateID] += vc.Votes
	}

	results := &model.ElectionResults{
		ElectionID: e.ID,
		Status:     e.Status,
		IsOfficial: e.IsOfficial,
		Positions:  make([]*model.PositionResult, 0, len(positions)),
	}
	for _, p := range positions {
		results.Positions = append(results.Positions, tally.RankPosition(p, candidates, counts))
	}

	turnout, err := s.Turnout(ctx, e)
	if err != nil {
		return nil, err
	}
	results.Turnout = turnout
	return results, nil
}

// Turnout 统计投票率：分母为当前符合限制的有效用户，分子为至少投过一票的人数
func (s *ResultsService) Turnout(ctx context.Context, e *model.Election) (model.Turnout, error) {
	total, err := s.store.CountEligibleUsers(ctx, e.VoterRestriction)
	if err != nil {
		return model.Turnout{}, err
	}
	voted, err := s.store.CountDistinctVoters(ctx, e.ID)
	if err != nil {
		return model.Turnout{}, err
	}
	return tally.ComputeTurnout(total, voted), nil
}
