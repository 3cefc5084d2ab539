// Package testutil 提供基于SQLite的测试仓库与测试数据构造方法
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/lvdashuaibi/campusvote/internal/model"
	"github.com/lvdashuaibi/campusvote/internal/notify"
	"github.com/lvdashuaibi/campusvote/internal/repository"
)

// SetupTestRepo 创建一个文件型SQLite数据库并建好表结构
func SetupTestRepo(t *testing.T) *repository.SQLRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "campusvote.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", path)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)

	// SQLite 单写者，串行化连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	repo := repository.NewSQLRepository(db, nil)
	require.NoError(t, repo.Migrate(context.Background()))
	t.Cleanup(repo.Close)
	return repo
}

// Day 返回2025年1月的某一天零点（UTC）
func Day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

// NewElection 构造一个竞选期1-9日、投票期10-12日的选举
func NewElection(restriction model.VoterRestriction, positions ...*model.Position) *model.Election {
	id := uuid.NewString()
	for i, p := range positions {
		p.ElectionID = id
		p.SortOrder = i
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = Day(1)
		}
	}
	return &model.Election{
		ID:                id,
		Title:             "Student Council 2025",
		CampaignStartDate: Day(1),
		CampaignEndDate:   Day(9),
		ElectionStartDate: Day(10),
		ElectionEndDate:   Day(12),
		Status:            model.StatusUpcoming,
		VoterRestriction:  restriction,
		IsActive:          true,
		CreatedAt:         Day(1),
		Positions:         positions,
	}
}

// NewPosition 构造职位
func NewPosition(title string, winners int) *model.Position {
	return &model.Position{Title: title, WinnerCount: winners}
}

// Student 构造学生用户
func Student(id string) *model.User {
	return &model.User{ID: id, Name: id, Role: "VOTER", IsActive: true, Year: "2", Course: "BSCS", Section: "A"}
}

// Faculty 构造教职工用户
func Faculty(id string) *model.User {
	return &model.User{ID: id, Name: id, Role: "VOTER", IsActive: true, Institute: "ICS", Department: "CS"}
}

// NonTeaching 构造非教学人员
func NonTeaching(id string) *model.User {
	return &model.User{ID: id, Name: id, Role: "VOTER", IsActive: true, Unit: "Registrar"}
}

// MustSaveUsers 批量写入用户
func MustSaveUsers(t *testing.T, repo *repository.SQLRepository, users ...*model.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, repo.SaveUser(context.Background(), u))
	}
}

// MustCandidate 直接写入一个候选人
func MustCandidate(t *testing.T, repo *repository.SQLRepository, userID string, pos *model.Position, status model.CandidateStatus, registered time.Time) *model.Candidate {
	t.Helper()
	c := &model.Candidate{
		ID:         uuid.NewString(),
		UserID:     userID,
		ElectionID: pos.ElectionID,
		PositionID: pos.ID,
		Status:     status,
		Platform:   "platform of " + userID,
		ImageURL:   "https://img.example.edu/" + userID + ".png",
		IsActive:   true,
		CreatedAt:  registered,
	}
	require.NoError(t, repo.InsertCandidate(context.Background(), c))
	return c
}

// RecordingDispatcher 记录所有通知，用于断言
type RecordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	Err  error
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.sent = append(d.sent, n)
	return nil
}

// Sent 返回已记录的通知副本
func (d *RecordingDispatcher) Sent() []notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Notification(nil), d.sent...)
}
