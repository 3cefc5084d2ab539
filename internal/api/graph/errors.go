package graph

import (
	"errors"
	"log"

	"github.com/lvdashuaibi/campusvote/internal/model"
)

var (
	errUnauthenticated = errors.New("未登录")
	errForbidden       = errors.New("需要管理员权限")
)

// resolverError 带错误码的GraphQL错误，错误码放在 extensions.code 中
type resolverError struct {
	code string
	msg  string
}

func (e *resolverError) Error() string { return e.msg }

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// 按顺序匹配，更具体的错误在前
var errorCodes = []struct {
	err  error
	code string
}{
	{errUnauthenticated, "UNAUTHENTICATED"},
	{errForbidden, "FORBIDDEN"},
	{model.ErrElectionNotFound, "ELECTION_NOT_FOUND"},
	{model.ErrCandidateNotFound, "CANDIDATE_NOT_FOUND"},
	{model.ErrNotFound, "NOT_FOUND"},
	{model.ErrValidation, "VALIDATION_ERROR"},
	{model.ErrDuplicateCandidacy, "DUPLICATE_CANDIDACY"},
	{model.ErrCampaignClosed, "CAMPAIGN_CLOSED"},
	{model.ErrVotingWindowClosed, "VOTING_WINDOW_CLOSED"},
	{model.ErrInvalidPosition, "INVALID_POSITION"},
	{model.ErrCandidateNotEligible, "CANDIDATE_NOT_ELIGIBLE"},
	{model.ErrVoterNotEligible, "VOTER_NOT_ELIGIBLE"},
	{model.ErrAlreadyVoted, "ALREADY_VOTED"},
	{model.ErrInvalidTransition, "INVALID_TRANSITION"},
}

// toGraphQLError 业务错误原样返回信息；存储错误和未知错误只记录日志，不把内部细节暴露给调用方
func toGraphQLError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return &resolverError{code: c.code, msg: err.Error()}
		}
	}
	log.Printf("GraphQL请求内部错误: %v", err)
	if errors.Is(err, model.ErrStorage) {
		return &resolverError{code: "STORAGE_ERROR", msg: model.ErrStorage.Error()}
	}
	return &resolverError{code: "INTERNAL", msg: "服务内部错误"}
}
