package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/clock"
	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/service"
	"github.com/lvdashuaibi/campusvote/internal/testutil"
)

type graphEnv struct {
	schema *graphql.Schema
	clock  *clock.Fake
	server *GraphQLServer
}

func newGraphEnv(t *testing.T) *graphEnv {
	t.Helper()
	repo := testutil.SetupTestRepo(t)
	clk := clock.NewFake(testutil.Day(2))
	dispatcher := &testutil.RecordingDispatcher{}
	statusSync := service.NewStatusSynchronizer(repo, clk)

	resolver := NewResolver(Services{
		Elections: service.NewElectionService(repo, clk, statusSync, dispatcher),
		Candidacy: service.NewCandidacyService(repo, clk),
		Votes:     service.NewVoteService(repo, clk, dispatcher),
		Results:   service.NewResultsService(repo, nil, statusSync),
		Users:     service.NewUserService(repo),
	})

	gin.SetMode(gin.TestMode)
	cfg := config.Config{GraphQL: config.GraphQLConfig{Path: "/graphql"}}
	return &graphEnv{
		schema: NewSchema(resolver),
		clock:  clk,
		server: NewGraphQLServer(cfg, resolver),
	}
}

var (
	admin = Principal{ID: "admin", Role: RoleAdmin}
	alice = Principal{ID: "alice", Role: "VOTER"}
	bob   = Principal{ID: "bob", Role: "VOTER"}
)

// exec 执行查询，返回data与第一个错误的code
func (env *graphEnv) exec(t *testing.T, p *Principal, query string, vars map[string]interface{}) (map[string]interface{}, string) {
	t.Helper()
	ctx := context.Background()
	if p != nil {
		ctx = WithPrincipal(ctx, *p)
	}
	resp := env.schema.Exec(ctx, query, "", vars)

	var data map[string]interface{}
	if len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, &data))
	}
	if len(resp.Errors) == 0 {
		return data, ""
	}
	code, _ := resp.Errors[0].Extensions["code"].(string)
	require.NotEmpty(t, code, "error without code: %v", resp.Errors[0])
	return data, code
}

func field(data map[string]interface{}, path ...string) interface{} {
	var cur interface{} = data
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

const createElection = `mutation($input: CreateElectionInput!) {
  createElection(input: $input) { id status voterRestriction positions { id title winnerCount } }
}`

func electionInput() map[string]interface{} {
	return map[string]interface{}{
		"title":             "Student Council 2025",
		"campaignStartDate": "2025-01-01T00:00:00Z",
		"campaignEndDate":   "2025-01-09T00:00:00Z",
		"electionStartDate": "2025-01-10T00:00:00Z",
		"electionEndDate":   "2025-01-12T00:00:00Z",
		"voterRestriction":  "STUDENTS",
		"positions":         []interface{}{map[string]interface{}{"title": "President", "winnerCount": float64(1)}},
	}
}

func TestElectionLifecycleOverGraphQL(t *testing.T) {
	env := newGraphEnv(t)

	data, code := env.exec(t, &admin, createElection, map[string]interface{}{"input": electionInput()})
	require.Empty(t, code)
	electionID := field(data, "createElection", "id").(string)
	assert.Equal(t, "UPCOMING", field(data, "createElection", "status"))
	positions := field(data, "createElection", "positions").([]interface{})
	require.Len(t, positions, 1)
	positionID := positions[0].(map[string]interface{})["id"].(string)

	for _, u := range []string{
		`{id: "alice", email: "alice@example.edu", year: "3", course: "BSCS"}`,
		`{id: "bob", email: "bob@example.edu", institute: "ICS", department: "CS"}`,
	} {
		_, code = env.exec(t, &admin, `mutation { saveUser(input: `+u+`) { id userType } }`, nil)
		require.Empty(t, code)
	}

	register := `mutation($input: RegisterCandidacyInput!) { registerCandidacy(input: $input) { id status } }`
	regInput := map[string]interface{}{"input": map[string]interface{}{
		"electionId": electionID, "positionId": positionID,
		"platform": "longer library hours", "photoUrl": "https://img.example.edu/alice.png",
	}}
	data, code = env.exec(t, &alice, register, regInput)
	require.Empty(t, code)
	candidateID := field(data, "registerCandidacy", "id").(string)
	assert.Equal(t, "PENDING", field(data, "registerCandidacy", "status"))

	_, code = env.exec(t, &alice, register, regInput)
	assert.Equal(t, "DUPLICATE_CANDIDACY", code)

	review := `mutation($id: ID!) { reviewCandidacy(candidateId: $id, decision: APPROVED) { status } }`
	_, code = env.exec(t, &alice, review, map[string]interface{}{"id": candidateID})
	assert.Equal(t, "FORBIDDEN", code)
	data, code = env.exec(t, &admin, review, map[string]interface{}{"id": candidateID})
	require.Empty(t, code)
	assert.Equal(t, "APPROVED", field(data, "reviewCandidacy", "status"))

	cast := `mutation($input: CastVoteInput!) { castVote(input: $input) { id candidateId } }`
	voteInput := map[string]interface{}{"input": map[string]interface{}{
		"electionId": electionID, "positionId": positionID, "candidateId": candidateID,
	}}

	_, code = env.exec(t, &alice, cast, voteInput)
	assert.Equal(t, "VOTING_WINDOW_CLOSED", code)

	env.clock.Set(testutil.Day(11))
	_, code = env.exec(t, nil, cast, voteInput)
	assert.Equal(t, "UNAUTHENTICATED", code)

	_, code = env.exec(t, &bob, cast, voteInput)
	assert.Equal(t, "VOTER_NOT_ELIGIBLE", code)

	data, code = env.exec(t, &alice, cast, voteInput)
	require.Empty(t, code)
	assert.Equal(t, candidateID, field(data, "castVote", "candidateId"))

	_, code = env.exec(t, &alice, cast, voteInput)
	assert.Equal(t, "ALREADY_VOTED", code)

	data, code = env.exec(t, &alice, `query($id: ID!) { myVotedPositions(electionId: $id) }`,
		map[string]interface{}{"id": electionID})
	require.Empty(t, code)
	assert.Equal(t, []interface{}{positionID}, field(data, "myVotedPositions"))

	results := `query($id: ID!) {
  results(electionId: $id) {
    status isOfficial
    positions { tieAtCutoff candidates { candidateId votes rank isWinner } }
    turnout { totalVoters votedCount notVotedCount percentage }
  }
}`
	data, code = env.exec(t, nil, results, map[string]interface{}{"id": electionID})
	require.Empty(t, code)
	assert.Equal(t, "ONGOING", field(data, "results", "status"))
	assert.Equal(t, "100", field(data, "results", "turnout", "percentage"))
	assert.Equal(t, float64(1), field(data, "results", "turnout", "totalVoters"))
	pr := field(data, "results", "positions").([]interface{})[0].(map[string]interface{})
	tally := pr["candidates"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(1), tally["votes"])
	assert.Equal(t, true, tally["isWinner"])

	official := `mutation($id: ID!) { markOfficial(id: $id) { status isOfficial } }`
	_, code = env.exec(t, &admin, official, map[string]interface{}{"id": electionID})
	assert.Equal(t, "INVALID_TRANSITION", code)

	env.clock.Set(testutil.Day(13))
	data, code = env.exec(t, &admin, official, map[string]interface{}{"id": electionID})
	require.Empty(t, code)
	assert.Equal(t, "COMPLETED", field(data, "markOfficial", "status"))
	assert.Equal(t, true, field(data, "markOfficial", "isOfficial"))
}

func TestCreateElectionValidation(t *testing.T) {
	env := newGraphEnv(t)

	_, code := env.exec(t, &alice, createElection, map[string]interface{}{"input": electionInput()})
	assert.Equal(t, "FORBIDDEN", code)

	in := electionInput()
	in["campaignEndDate"] = "next tuesday"
	_, code = env.exec(t, &admin, createElection, map[string]interface{}{"input": in})
	assert.Equal(t, "VALIDATION_ERROR", code)

	in = electionInput()
	in["electionEndDate"] = "2025-01-05T00:00:00Z"
	_, code = env.exec(t, &admin, createElection, map[string]interface{}{"input": in})
	assert.Equal(t, "VALIDATION_ERROR", code)

	_, code = env.exec(t, nil, `{ election(id: "missing") { id } }`, nil)
	assert.Equal(t, "ELECTION_NOT_FOUND", code)
}

func TestCancelElectionOverGraphQL(t *testing.T) {
	env := newGraphEnv(t)

	data, code := env.exec(t, &admin, createElection, map[string]interface{}{"input": electionInput()})
	require.Empty(t, code)
	id := field(data, "createElection", "id").(string)

	cancel := `mutation($id: ID!) { cancelElection(id: $id) { status } }`
	data, code = env.exec(t, &admin, cancel, map[string]interface{}{"id": id})
	require.Empty(t, code)
	assert.Equal(t, "CANCELLED", field(data, "cancelElection", "status"))

	env.clock.Set(testutil.Day(11))
	data, code = env.exec(t, nil, `{ elections { id status } }`, nil)
	require.Empty(t, code)
	list := field(data, "elections").([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "CANCELLED", list[0].(map[string]interface{})["status"])

	data, code = env.exec(t, &admin, `mutation($id: ID!) { archiveElection(id: $id) { isActive } }`, map[string]interface{}{"id": id})
	require.Empty(t, code)
	assert.Equal(t, false, field(data, "archiveElection", "isActive"))

	data, code = env.exec(t, nil, `{ elections(activeOnly: true) { id } }`, nil)
	require.Empty(t, code)
	assert.Empty(t, field(data, "elections"))
}

func TestToGraphQLError(t *testing.T) {
	cases := map[error]string{
		model.ErrElectionNotFound:   "ELECTION_NOT_FOUND",
		model.ErrCandidateNotFound:  "CANDIDATE_NOT_FOUND",
		model.ErrNotFound:           "NOT_FOUND",
		model.ErrAlreadyVoted:       "ALREADY_VOTED",
		model.ErrVoterNotEligible:   "VOTER_NOT_ELIGIBLE",
		model.ErrVotingWindowClosed: "VOTING_WINDOW_CLOSED",
		model.ErrStorage:            "STORAGE_ERROR",
		assert.AnError:              "INTERNAL",
	}
	for err, want := range cases {
		got := toGraphQLError(err).(*resolverError)
		assert.Equal(t, want, got.Extensions()["code"], err.Error())
	}
	assert.Nil(t, toGraphQLError(nil))
}

func TestHTTPServer(t *testing.T) {
	env := newGraphEnv(t)
	h := env.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "endpoint: '/graphql'")

	body := `{"query":"mutation { syncStatuses }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, "admin")
	req.Header.Set(HeaderUserRole, RoleAdmin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"syncStatuses":true}}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}
