// Package tally 根据选票账本计算各职位排名、当选者以及投票率。
// 所有函数都是纯函数，相同输入永远得到相同输出。
package tally

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

// RankPosition 对单个职位计票。
//
// 参与排名的是可投票的候选人以及在账本中有得票的候选人（即使后来被撤销）。
// 排序规则：票数降序；票数相同按报名时间升序；再相同按候选人ID升序。
// 前 WinnerCount 名且票数大于0者当选。若当选线上下存在平票，TieAtCutoff 为 true。
func RankPosition(pos *model.Position, candidates []*model.Candidate, counts map[string]int) *model.PositionResult {
	result := &model.PositionResult{
		PositionID:  pos.ID,
		Title:       pos.Title,
		WinnerCount: pos.WinnerCount,
		Candidates:  make([]*model.CandidateTally, 0, len(candidates)),
	}

	for _, c := range candidates {
		if c.PositionID != pos.ID {
			continue
		}
		votes := counts[c.ID]
		if !c.Votable() && votes == 0 {
			continue
		}
		result.Candidates = append(result.Candidates, &model.CandidateTally{
			CandidateID:  c.ID,
			UserID:       c.UserID,
			Votes:        votes,
			RegisteredAt: c.CreatedAt,
		})
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		a, b := result.Candidates[i], result.Candidates[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.CandidateID < b.CandidateID
	})

	for i, c := range result.Candidates {
		// 同票同名次
		if i > 0 && result.Candidates[i-1].Votes == c.Votes {
			c.Rank = result.Candidates[i-1].Rank
		} else {
			c.Rank = i + 1
		}
		c.IsWinner = i < pos.WinnerCount && c.Votes > 0
	}

	n := pos.WinnerCount
	if n > 0 && n < len(result.Candidates) {
		last, next := result.Candidates[n-1], result.Candidates[n]
		result.TieAtCutoff = last.Votes > 0 && last.Votes == next.Votes
	}

	return result
}

// ComputeTurnout 计算投票率。votedCount 超过 totalVoters 时
// （投票后用户资料变更导致不再计入合格人数）按 totalVoters 截断。
func ComputeTurnout(totalVoters, votedCount int) model.Turnout {
	if totalVoters < 0 {
		totalVoters = 0
	}
	if votedCount < 0 {
		votedCount = 0
	}
	if votedCount > totalVoters {
		votedCount = totalVoters
	}
	return model.Turnout{
		TotalVoters:   totalVoters,
		VotedCount:    votedCount,
		NotVotedCount: totalVoters - votedCount,
		Percentage:    FormatPercentage(votedCount, totalVoters),
	}
}

// FormatPercentage 保留两位小数并去掉末尾的0，总数为0时返回"0"
func FormatPercentage(part, total int) string {
	if total <= 0 {
		return "0"
	}
	p := float64(part) / float64(total) * 100
	s := strconv.FormatFloat(p, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
