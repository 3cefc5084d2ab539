package graph

import (
	"context"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ElectionResolver 选举解析器
type ElectionResolver struct {
	root     *Resolver
	election *model.Election
}

func (r *ElectionResolver) ID() graphql.ID           { return graphql.ID(r.election.ID) }
func (r *ElectionResolver) Title() string            { return r.election.Title }
func (r *ElectionResolver) Description() string      { return r.election.Description }
func (r *ElectionResolver) Status() string           { return string(r.election.Status) }
func (r *ElectionResolver) VoterRestriction() string { return string(r.election.VoterRestriction) }
func (r *ElectionResolver) IsActive() bool           { return r.election.IsActive }
func (r *ElectionResolver) IsOfficial() bool         { return r.election.IsOfficial }
func (r *ElectionResolver) CreatedAt() string        { return formatTime(r.election.CreatedAt) }

func (r *ElectionResolver) CampaignStartDate() string {
	return formatTime(r.election.CampaignStartDate)
}

func (r *ElectionResolver) CampaignEndDate() string {
	return formatTime(r.election.CampaignEndDate)
}

func (r *ElectionResolver) ElectionStartDate() string {
	return formatTime(r.election.ElectionStartDate)
}

func (r *ElectionResolver) ElectionEndDate() string {
	return formatTime(r.election.ElectionEndDate)
}

// Positions 列表查询不带职位，按需加载
func (r *ElectionResolver) Positions(ctx context.Context) ([]*PositionResolver, error) {
	positions := r.election.Positions
	if positions == nil {
		var err error
		positions, err = r.root.elections.ListPositions(ctx, r.election.ID)
		if err != nil {
			return nil, toGraphQLError(err)
		}
	}
	out := make([]*PositionResolver, len(positions))
	for i, p := range positions {
		out[i] = &PositionResolver{position: p}
	}
	return out, nil
}

func (r *ElectionResolver) Candidates(ctx context.Context) ([]*CandidateResolver, error) {
	candidates, err := r.root.candidacy.ListCandidates(ctx, r.election.ID)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return candidateResolvers(candidates), nil
}

// PositionResolver 职位解析器
type PositionResolver struct {
	position *model.Position
}

func (r *PositionResolver) ID() graphql.ID         { return graphql.ID(r.position.ID) }
func (r *PositionResolver) ElectionID() graphql.ID { return graphql.ID(r.position.ElectionID) }
func (r *PositionResolver) Title() string          { return r.position.Title }
func (r *PositionResolver) WinnerCount() int32     { return int32(r.position.WinnerCount) }
func (r *PositionResolver) SortOrder() int32       { return int32(r.position.SortOrder) }

// CandidateResolver 候选人解析器
type CandidateResolver struct {
	candidate *model.Candidate
}

func candidateResolvers(candidates []*model.Candidate) []*CandidateResolver {
	out := make([]*CandidateResolver, len(candidates))
	for i, c := range candidates {
		out[i] = &CandidateResolver{candidate: c}
	}
	return out
}

func (r *CandidateResolver) ID() graphql.ID         { return graphql.ID(r.candidate.ID) }
func (r *CandidateResolver) UserID() graphql.ID     { return graphql.ID(r.candidate.UserID) }
func (r *CandidateResolver) ElectionID() graphql.ID { return graphql.ID(r.candidate.ElectionID) }
func (r *CandidateResolver) PositionID() graphql.ID { return graphql.ID(r.candidate.PositionID) }
func (r *CandidateResolver) Status() string         { return string(r.candidate.Status) }
func (r *CandidateResolver) Platform() string       { return r.candidate.Platform }
func (r *CandidateResolver) PhotoURL() string       { return r.candidate.ImageURL }
func (r *CandidateResolver) IsActive() bool         { return r.candidate.IsActive }
func (r *CandidateResolver) CreatedAt() string      { return formatTime(r.candidate.CreatedAt) }

// VoteResolver 选票解析器，不暴露投票人
type VoteResolver struct {
	vote *model.Vote
}

func (r *VoteResolver) ID() graphql.ID          { return graphql.ID(r.vote.ID) }
func (r *VoteResolver) ElectionID() graphql.ID  { return graphql.ID(r.vote.ElectionID) }
func (r *VoteResolver) PositionID() graphql.ID  { return graphql.ID(r.vote.PositionID) }
func (r *VoteResolver) CandidateID() graphql.ID { return graphql.ID(r.vote.CandidateID) }
func (r *VoteResolver) CreatedAt() string       { return formatTime(r.vote.CreatedAt) }

// UserResolver 用户解析器
type UserResolver struct {
	user *model.User
}

func (r *UserResolver) ID() graphql.ID { return graphql.ID(r.user.ID) }
func (r *UserResolver) Email() string  { return r.user.Email }
func (r *UserResolver) Name() string   { return r.user.Name }
func (r *UserResolver) Role() string   { return r.user.Role }
func (r *UserResolver) IsActive() bool { return r.user.IsActive }

func (r *UserResolver) UserType() *string {
	if r.user.UserType == model.UserTypeUnknown {
		return nil
	}
	t := string(r.user.UserType)
	return &t
}

// ResultsResolver 计票结果解析器
type ResultsResolver struct {
	results *model.ElectionResults
}

func (r *ResultsResolver) ElectionID() graphql.ID { return graphql.ID(r.results.ElectionID) }
func (r *ResultsResolver) Status() string         { return string(r.results.Status) }
func (r *ResultsResolver) IsOfficial() bool       { return r.results.IsOfficial }

func (r *ResultsResolver) Turnout() *TurnoutResolver {
	return &TurnoutResolver{turnout: r.results.Turnout}
}

func (r *ResultsResolver) Positions() []*PositionResultResolver {
	out := make([]*PositionResultResolver, len(r.results.Positions))
	for i, p := range r.results.Positions {
		out[i] = &PositionResultResolver{result: p}
	}
	return out
}

type PositionResultResolver struct {
	result *model.PositionResult
}

func (r *PositionResultResolver) PositionID() graphql.ID { return graphql.ID(r.result.PositionID) }
func (r *PositionResultResolver) Title() string          { return r.result.Title }
func (r *PositionResultResolver) WinnerCount() int32     { return int32(r.result.WinnerCount) }
func (r *PositionResultResolver) TieAtCutoff() bool      { return r.result.TieAtCutoff }

func (r *PositionResultResolver) Candidates() []*TallyResolver {
	out := make([]*TallyResolver, len(r.result.Candidates))
	for i, c := range r.result.Candidates {
		out[i] = &TallyResolver{tally: c}
	}
	return out
}

type TallyResolver struct {
	tally *model.CandidateTally
}

func (r *TallyResolver) CandidateID() graphql.ID { return graphql.ID(r.tally.CandidateID) }
func (r *TallyResolver) UserID() graphql.ID      { return graphql.ID(r.tally.UserID) }
func (r *TallyResolver) Votes() int32            { return int32(r.tally.Votes) }
func (r *TallyResolver) Rank() int32             { return int32(r.tally.Rank) }
func (r *TallyResolver) IsWinner() bool          { return r.tally.IsWinner }

type TurnoutResolver struct {
	turnout model.Turnout
}

func (r *TurnoutResolver) TotalVoters() int32   { return int32(r.turnout.TotalVoters) }
func (r *TurnoutResolver) VotedCount() int32    { return int32(r.turnout.VotedCount) }
func (r *TurnoutResolver) NotVotedCount() int32 { return int32(r.turnout.NotVotedCount) }
func (r *TurnoutResolver) Percentage() string   { return r.turnout.Percentage }
