package graph

import (
	"context"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/service"
)

// Resolver GraphQL根解析器
type Resolver struct {
	elections *service.ElectionService
	candidacy *service.CandidacyService
	votes     *service.VoteService
	results   *service.ResultsService
	users     *service.UserService
}

// Services 解析器依赖的服务集合
type Services struct {
	Elections *service.ElectionService
	Candidacy *service.CandidacyService
	Votes     *service.VoteService
	Results   *service.ResultsService
	Users     *service.UserService
}

// NewResolver 创建新的解析器
func NewResolver(s Services) *Resolver {
	return &Resolver{
		elections: s.Elections,
		candidacy: s.Candidacy,
		votes:     s.Votes,
		results:   s.Results,
		users:     s.Users,
	}
}

func (r *Resolver) electionResolver(e *model.Election) *ElectionResolver {
	return &ElectionResolver{root: r, election: e}
}

func (r *Resolver) loadElection(ctx context.Context, id string) (*ElectionResolver, error) {
	e, err := r.elections.GetElection(ctx, id)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return r.electionResolver(e), nil
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析%s失败: %w", field, model.ErrValidation)
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ---------- Query ----------

func (r *Resolver) Elections(ctx context.Context, args struct{ ActiveOnly *bool }) ([]*ElectionResolver, error) {
	activeOnly := args.ActiveOnly != nil && *args.ActiveOnly
	elections, err := r.elections.ListElections(ctx, activeOnly)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	out := make([]*ElectionResolver, len(elections))
	for i, e := range elections {
		out[i] = r.electionResolver(e)
	}
	return out, nil
}

func (r *Resolver) Election(ctx context.Context, args struct{ ID graphql.ID }) (*ElectionResolver, error) {
	return r.loadElection(ctx, string(args.ID))
}

func (r *Resolver) Candidates(ctx context.Context, args struct{ ElectionID graphql.ID }) ([]*CandidateResolver, error) {
	candidates, err := r.candidacy.ListCandidates(ctx, string(args.ElectionID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return candidateResolvers(candidates), nil
}

func (r *Resolver) Results(ctx context.Context, args struct{ ElectionID graphql.ID }) (*ResultsResolver, error) {
	results, err := r.results.ComputeResults(ctx, string(args.ElectionID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &ResultsResolver{results: results}, nil
}

func (r *Resolver) MyVotedPositions(ctx context.Context, args struct{ ElectionID graphql.ID }) ([]graphql.ID, error) {
	p, err := requireUser(ctx)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	positions, err := r.votes.VotedPositions(ctx, p.ID, string(args.ElectionID))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	out := make([]graphql.ID, len(positions))
	for i, id := range positions {
		out[i] = graphql.ID(id)
	}
	return out, nil
}

// ---------- Mutation：管理员 ----------

type PositionInput struct {
	Title       string
	WinnerCount int32
}

type CreateElectionInput struct {
	Title             string
	Description       *string
	CampaignStartDate string
	CampaignEndDate   string
	ElectionStartDate string
	ElectionEndDate   string
	VoterRestriction  *string
	Positions         *[]PositionInput
}

func (in CreateElectionInput) toService() (service.CreateElectionInput, error) {
	out := service.CreateElectionInput{
		Title:            in.Title,
		Description:      deref(in.Description),
		VoterRestriction: model.VoterRestriction(deref(in.VoterRestriction)),
	}

	dates := []struct {
		field string
		value string
		dst   *time.Time
	}{
		{"campaignStartDate", in.CampaignStartDate, &out.CampaignStartDate},
		{"campaignEndDate", in.CampaignEndDate, &out.CampaignEndDate},
		{"electionStartDate", in.ElectionStartDate, &out.ElectionStartDate},
		{"electionEndDate", in.ElectionEndDate, &out.ElectionEndDate},
	}
	for _, d := range dates {
		t, err := parseTime(d.field, d.value)
		if err != nil {
			return out, err
		}
		*d.dst = t
	}

	if in.Positions != nil {
		for _, p := range *in.Positions {
			out.Positions = append(out.Positions, service.PositionInput{Title: p.Title, WinnerCount: int(p.WinnerCount)})
		}
	}
	return out, nil
}

func (r *Resolver) CreateElection(ctx context.Context, args struct{ Input CreateElectionInput }) (*ElectionResolver, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, toGraphQLError(err)
	}
	in, err := args.Input.toService()
	if err != nil {
		return nil, toGraphQLError(err)
	}
	e, err := r.elections.CreateElection(ctx, in)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return r.electionResolver(e), nil
}

func (r *Resolver) AddPosition(ctx context.Context, args struct {
	ElectionID graphql.ID
	Input      PositionInput
}) (*PositionResolver, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, toGraphQLError(err)
	}
	p, err := r.elections.AddPosition(ctx, string(args.ElectionID),
		service.PositionInput{Title: args.Input.Title, WinnerCount: int(args.Input.WinnerCount)})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &PositionResolver{position: p}, nil
}

// adminTransition 执行管理员状态变更并返回最新的选举
func (r *Resolver) adminTransition(ctx context.Context, id graphql.ID, op func(context.Context, string) error) (*ElectionResolver, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, toGraphQLError(err)
	}
	if err := op(ctx, string(id)); err != nil {
		return nil, toGraphQLError(err)
	}
	return r.loadElection(ctx, string(id))
}

func (r *Resolver) CancelElection(ctx context.Context, args struct{ ID graphql.ID }) (*ElectionResolver, error) {
	return r.adminTransition(ctx, args.ID, r.elections.CancelElection)
}

func (r *Resolver) ArchiveElection(ctx context.Context, args struct{ ID graphql.ID }) (*ElectionResolver, error) {
	return r.adminTransition(ctx, args.ID, r.elections.ArchiveElection)
}

func (r *Resolver) MarkOfficial(ctx context.Context, args struct{ ID graphql.ID }) (*ElectionResolver, error) {
	return r.adminTransition(ctx, args.ID, r.elections.MarkOfficial)
}

func (r *Resolver) ReviewCandidacy(ctx context.Context, args struct {
	CandidateID graphql.ID
	Decision    string
}) (*CandidateResolver, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, toGraphQLError(err)
	}
	c, err := r.candidacy.ReviewCandidacy(ctx, string(args.CandidateID), model.CandidateStatus(args.Decision))
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &CandidateResolver{candidate: c}, nil
}

func (r *Resolver) SyncStatuses(ctx context.Context) (bool, error) {
	if err := requireAdmin(ctx); err != nil {
		return false, toGraphQLError(err)
	}
	if err := r.elections.SyncStatuses(ctx); err != nil {
		return false, toGraphQLError(err)
	}
	return true, nil
}

type UserInput struct {
	ID         graphql.ID
	Email      *string
	Name       *string
	Role       *string
	UserType   *string
	IsActive   *bool
	Year       *string
	Course     *string
	Section    *string
	Institute  *string
	Department *string
	Unit       *string
}

// SaveUser 身份服务同步用户资料
func (r *Resolver) SaveUser(ctx context.Context, args struct{ Input UserInput }) (*UserResolver, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, toGraphQLError(err)
	}
	in := args.Input
	u := &model.User{
		ID:         string(in.ID),
		Email:      deref(in.Email),
		Name:       deref(in.Name),
		Role:       deref(in.Role),
		UserType:   model.UserType(deref(in.UserType)),
		IsActive:   in.IsActive == nil || *in.IsActive,
		Year:       deref(in.Year),
		Course:     deref(in.Course),
		Section:    deref(in.Section),
		Institute:  deref(in.Institute),
		Department: deref(in.Department),
		Unit:       deref(in.Unit),
	}
	saved, err := r.users.SaveUser(ctx, u)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &UserResolver{user: saved}, nil
}

// ---------- Mutation：当前用户 ----------

type RegisterCandidacyInput struct {
	ElectionID graphql.ID
	PositionID graphql.ID
	Platform   string
	PhotoURL   string
}

func (r *Resolver) RegisterCandidacy(ctx context.Context, args struct{ Input RegisterCandidacyInput }) (*CandidateResolver, error) {
	p, err := requireUser(ctx)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	c, err := r.candidacy.RegisterCandidacy(ctx, service.RegisterCandidacyInput{
		UserID:     p.ID,
		ElectionID: string(args.Input.ElectionID),
		PositionID: string(args.Input.PositionID),
		Platform:   args.Input.Platform,
		PhotoURL:   args.Input.PhotoURL,
	})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &CandidateResolver{candidate: c}, nil
}

type CastVoteInput struct {
	ElectionID  graphql.ID
	PositionID  graphql.ID
	CandidateID graphql.ID
}

func (r *Resolver) CastVote(ctx context.Context, args struct{ Input CastVoteInput }) (*VoteResolver, error) {
	p, err := requireUser(ctx)
	if err != nil {
		return nil, toGraphQLError(err)
	}
	v, err := r.votes.CastVote(ctx, service.CastVoteInput{
		VoterID:     p.ID,
		ElectionID:  string(args.Input.ElectionID),
		PositionID:  string(args.Input.PositionID),
		CandidateID: string(args.Input.CandidateID),
	})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	return &VoteResolver{vote: v}, nil
}
