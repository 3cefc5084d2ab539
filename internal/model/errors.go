package model

import "errors"

// 业务错误类型，调用方通过errors.Is判断
var (
	ErrNotFound             = errors.New("记录不存在")
	ErrValidation           = errors.New("参数校验失败")
	ErrDuplicateCandidacy   = errors.New("该用户已在本次选举中报名")
	ErrVotingWindowClosed   = errors.New("当前不在投票时间内")
	ErrInvalidPosition      = errors.New("职位不属于该选举")
	ErrCandidateNotEligible = errors.New("候选人不可被投票")
	ErrVoterNotEligible     = errors.New("投票人不符合本次选举的投票资格")
	ErrAlreadyVoted         = errors.New("已对该职位投过票")
	ErrCampaignClosed       = errors.New("当前不在竞选报名时间内")
	ErrInvalidTransition    = errors.New("当前状态不允许该操作")
	ErrStorage              = errors.New("存储层错误")

	// 以下两类同时满足 errors.Is(err, ErrNotFound)
	ErrElectionNotFound  error = &notFoundError{msg: "选举不存在"}
	ErrCandidateNotFound error = &notFoundError{msg: "候选人不存在"}
)

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
