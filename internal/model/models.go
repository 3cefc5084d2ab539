package model

import (
	"time"
)

// ElectionStatus 选举状态
type ElectionStatus string

const (
	StatusUpcoming  ElectionStatus = "UPCOMING"
	StatusOngoing   ElectionStatus = "ONGOING"
	StatusCompleted ElectionStatus = "COMPLETED"
	StatusCancelled ElectionStatus = "CANCELLED"
)

// VoterRestriction 投票人限制策略
type VoterRestriction string

const (
	RestrictionAll             VoterRestriction = "ALL"
	RestrictionStudents        VoterRestriction = "STUDENTS"
	RestrictionFaculty         VoterRestriction = "FACULTY"
	RestrictionNonTeaching     VoterRestriction = "NON_TEACHING"
	RestrictionStudentsFaculty VoterRestriction = "STUDENTS_FACULTY"
)

// Valid 判断限制策略是否合法
func (r VoterRestriction) Valid() bool {
	switch r {
	case RestrictionAll, RestrictionStudents, RestrictionFaculty, RestrictionNonTeaching, RestrictionStudentsFaculty:
		return true
	}
	return false
}

// UserType 用户类别
type UserType string

const (
	UserTypeUnknown     UserType = ""
	UserTypeStudent     UserType = "STUDENT"
	UserTypeFaculty     UserType = "FACULTY"
	UserTypeNonTeaching UserType = "NON_TEACHING"
)

// CandidateStatus 候选人审核状态
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "PENDING"
	CandidateApproved CandidateStatus = "APPROVED"
	CandidateRejected CandidateStatus = "REJECTED"
)

// Election 选举
type Election struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	CampaignStartDate time.Time        `json:"campaignStartDate"`
	CampaignEndDate   time.Time        `json:"campaignEndDate"`
	ElectionStartDate time.Time        `json:"electionStartDate"`
	ElectionEndDate   time.Time        `json:"electionEndDate"`
	Status            ElectionStatus   `json:"status"`
	VoterRestriction  VoterRestriction `json:"voterRestriction"`
	IsActive          bool             `json:"isActive"`
	IsOfficial        bool             `json:"isOfficial"`
	CreatedAt         time.Time        `json:"createdAt"`
	Positions         []*Position      `json:"positions,omitempty"`
}

// Timestamp 库内时间统一为UTC并截断到秒，所有窗口比较都基于该精度
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// VotingOpen 判断now是否落在投票窗口内（两端闭区间）
func (e *Election) VotingOpen(now time.Time) bool {
	now = Timestamp(now)
	return !now.Before(e.ElectionStartDate) && !now.After(e.ElectionEndDate)
}

// CampaignOpen 判断now是否落在竞选报名窗口内
func (e *Election) CampaignOpen(now time.Time) bool {
	now = Timestamp(now)
	return !now.Before(e.CampaignStartDate) && !now.After(e.CampaignEndDate)
}

// Position 职位
type Position struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"electionId"`
	Title       string    `json:"title"`
	WinnerCount int       `json:"winnerCount"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Candidate 候选人
type Candidate struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	ElectionID string          `json:"electionId"`
	PositionID string          `json:"positionId"`
	Status     CandidateStatus `json:"status"`
	Platform   string          `json:"platform"`
	ImageURL   string          `json:"imageUrl"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Votable 只有审核通过且有效的候选人可以被投票
func (c *Candidate) Votable() bool {
	return c.Status == CandidateApproved && c.IsActive
}

// Vote 选票，创建后不可修改
type Vote struct {
	ID          string    `json:"id"`
	VoterID     string    `json:"voterId"`
	ElectionID  string    `json:"electionId"`
	PositionID  string    `json:"positionId"`
	CandidateID string    `json:"candidateId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User 身份服务提供的用户信息
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	UserType UserType `json:"userType"`
	IsActive bool     `json:"isActive"`

	// 学生字段
	Year    string `json:"year"`
	Course  string `json:"course"`
	Section string `json:"section"`

	// 教职工字段
	Institute  string `json:"institute"`
	Department string `json:"department"`

	// 非教学人员字段
	Unit string `json:"unit"`
}

// CandidateTally 候选人得票
type CandidateTally struct {
	CandidateID  string    `json:"candidateId"`
	UserID       string    `json:"userId"`
	Votes        int       `json:"votes"`
	Rank         int       `json:"rank"`
	IsWinner     bool      `json:"isWinner"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// PositionResult 职位计票结果
type PositionResult struct {
	PositionID  string            `json:"positionId"`
	Title       string            `json:"title"`
	WinnerCount int               `json:"winnerCount"`
	Candidates  []*CandidateTally `json:"candidates"`
	// TieAtCutoff 当选线上存在平票，需要管理员人工确认
	TieAtCutoff bool `json:"tieAtCutoff"`
}

// Turnout 投票率统计
type Turnout struct {
	TotalVoters   int    `json:"totalVoters"`
	VotedCount    int    `json:"votedCount"`
	NotVotedCount int    `json:"notVotedCount"`
	Percentage    string `json:"percentage"`
}

// ElectionResults 选举结果
type ElectionResults struct {
	ElectionID string            `json:"electionId"`
	Status     ElectionStatus    `json:"status"`
	IsOfficial bool              `json:"isOfficial"`
	Positions  []*PositionResult `json:"positions"`
	Turnout    Turnout           `json:"turnout"`
}

// VoteCount 按候选人聚合的票数
type VoteCount struct {
	PositionID  string
	CandidateID string
	Votes       int
}

// DeriveStatus 由当前时间推导选举状态，取消状态保持不变
func DeriveStatus(e *Election, now time.Time) ElectionStatus {
	now = Timestamp(now)
	switch {
	case e.Status == StatusCancelled:
		return StatusCancelled
	case now.Before(e.ElectionStartDate):
		return StatusUpcoming
	case now.After(e.ElectionEndDate):
		return StatusCompleted
	default:
		return StatusOngoing
	}
}
