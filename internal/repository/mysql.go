package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/eligibility"
	"github.com/lvdashuaibi/campusvote/internal/model"
)

const (
	mysqlDuplicateEntry = 1062

	// SQLite 扩展错误码，测试环境使用
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

// SQLRepository 关系库存储。写操作与投票链路上的读操作走主库，
// 统计类查询走从库。
type SQLRepository struct {
	masterDB *sql.DB
	slaveDB  *sql.DB
}

func NewMySQLRepository(cfg config.MySQLConfig) (*SQLRepository, error) {
	masterDB, err := sql.Open("mysql", cfg.Master)
	if err != nil {
		return nil, fmt.Errorf("连接主数据库失败: %w", err)
	}

	masterDB.SetMaxOpenConns(cfg.MaxOpenConns)
	masterDB.SetMaxIdleConns(cfg.MaxIdleConns)
	masterDB.SetConnMaxLifetime(time.Hour)

	if err = masterDB.Ping(); err != nil {
		masterDB.Close()
		return nil, fmt.Errorf("主数据库连接测试失败: %w", err)
	}

	if cfg.Slave == "" {
		return NewSQLRepository(masterDB, nil), nil
	}

	slaveDB, err := sql.Open("mysql", cfg.Slave)
	if err != nil {
		masterDB.Close()
		return nil, fmt.Errorf("连接从数据库失败: %w", err)
	}

	slaveDB.SetMaxOpenConns(cfg.MaxOpenConns)
	slaveDB.SetMaxIdleConns(cfg.MaxIdleConns)
	slaveDB.SetConnMaxLifetime(time.Hour)

	if err = slaveDB.Ping(); err != nil {
		log.Printf("从数据库连接测试失败: %v，将使用主数据库代替", err)
		slaveDB.Close()
		slaveDB = nil
	}

	return NewSQLRepository(masterDB, slaveDB), nil
}

// NewSQLRepository 使用已打开的连接创建仓库，slave为nil时读写都走master
func NewSQLRepository(master, slave *sql.DB) *SQLRepository {
	if slave == nil {
		slave = master
	}
	return &SQLRepository{masterDB: master, slaveDB: slave}
}

func ts(t time.Time) time.Time {
	return model.Timestamp(t)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}

// isDuplicateKey 判断是否为唯一约束冲突
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type scanner interface {
	Scan(dest ...any) error
}

// ---------- 用户 ----------

const userColumns = "id, email, name, role, user_type, is_active, year, course, section, institute, department, unit"

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var userType string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &userType, &u.IsActive,
		&u.Year, &u.Course, &u.Section, &u.Institute, &u.Department, &u.Unit)
	if err != nil {
		return nil, err
	}
	u.UserType = model.UserType(userType)
	return &u, nil
}

// SaveUser 写入身份服务同步过来的用户，已存在则覆盖资料
func (r *SQLRepository) SaveUser(ctx context.Context, u *model.User) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("开始事务失败", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET email = ?, name = ?, role = ?, user_type = ?, is_active = ?,
		year = ?, course = ?, section = ?, institute = ?, department = ?, unit = ? WHERE id = ?`,
		u.Email, u.Name, u.Role, string(u.UserType), u.IsActive,
		u.Year, u.Course, u.Section, u.Institute, u.Department, u.Unit, u.ID)
	if err != nil {
		return storageErr("更新用户失败", err)
	}

	// MySQL 在资料未变化时 RowsAffected 也为0，此时插入会撞主键，视为成功
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = tx.ExecContext(ctx, "INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			u.ID, u.Email, u.Name, u.Role, string(u.UserType), u.IsActive,
			u.Year, u.Course, u.Section, u.Institute, u.Department, u.Unit)
		if err != nil && !isDuplicateKey(err) {
			return storageErr("保存用户失败", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("提交事务失败", err)
	}
	return nil
}

// FindUser 获取用户
func (r *SQLRepository) FindUser(ctx context.Context, id string) (*model.User, error) {
	row := r.masterDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("用户 %s: %w", id, model.ErrNotFound)
		}
		return nil, storageErr("查询用户失败", err)
	}
	return u, nil
}

// CountEligibleUsers 统计满足投票人限制的有效用户数。
// 已保存类别的用户在SQL中过滤，类别为空的用户逐行推导
func (r *SQLRepository) CountEligibleUsers(ctx context.Context, restriction model.VoterRestriction) (int, error) {
	types, unrestricted := eligibility.AllowedTypes(restriction)
	if unrestricted {
		var count int
		err := r.slaveDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE is_active = ?", true).Scan(&count)
		if err != nil {
			return 0, storageErr("统计用户失败", err)
		}
		return count, nil
	}
	if len(types) == 0 {
		return 0, nil
	}

	args := []any{true}
	for _, t := range types {
		args = append(args, string(t))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(types)), ", ")

	var count int
	err := r.slaveDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE is_active = ? AND user_type IN ("+placeholders+")", args...).Scan(&count)
	if err != nil {
		return 0, storageErr("统计用户失败", err)
	}

	rows, err := r.slaveDB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active = ? AND user_type = ?", true, string(model.UserTypeUnknown))
	if err != nil {
		return 0, storageErr("查询用户列表失败", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return 0, storageErr("扫描用户失败", err)
		}
		if eligibility.IsEligible(u, restriction) {
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, storageErr("迭代用户失败", err)
	}
	return count, nil
}

// ---------- 选举 ----------

const electionColumns = `id, title, description, campaign_start_date, campaign_end_date,
	election_start_date, election_end_date, status, voter_restriction, is_active, is_official, created_at`

func scanElection(row scanner) (*model.Election, error) {
	var e model.Election
	var status, restriction string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.CampaignStartDate, &e.CampaignEndDate,
		&e.ElectionStartDate, &e.ElectionEndDate, &status, &restriction, &e.IsActive, &e.IsOfficial, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = model.ElectionStatus(status)
	e.VoterRestriction = model.VoterRestriction(restriction)
	return &e, nil
}

// CreateElection 在一个事务中写入选举及其职位
func (r *SQLRepository) CreateElection(ctx context.Context, e *model.Election) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("开始事务失败", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO elections ("+electionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Title, e.Description, ts(e.CampaignStartDate), ts(e.CampaignEndDate),
		ts(e.ElectionStartDate), ts(e.ElectionEndDate), string(e.Status), string(e.VoterRestriction),
		e.IsActive, e.IsOfficial, ts(e.CreatedAt))
	if err != nil {
		return storageErr("保存选举失败", err)
	}

	for _, p := range e.Positions {
		if err := insertPosition(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("提交事务失败", err)
	}
	return nil
}

// FindElection 获取选举（不含职位）
func (r *SQLRepository) FindElection(ctx context.Context, id string) (*model.Election, error) {
	row := r.masterDB.QueryRowContext(ctx, "SELECT "+electionColumns+" FROM elections WHERE id = ?", id)
	e, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("选举 %s: %w", id, model.ErrElectionNotFound)
		}
		return nil, storageErr("查询选举失败", err)
	}
	return e, nil
}

// ListElections 按投票开始时间倒序列出选举
func (r *SQLRepository) ListElections(ctx context.Context, activeOnly bool) ([]*model.Election, error) {
	query := "SELECT " + electionColumns + " FROM elections"
	var args []any
	if activeOnly {
		query += " WHERE is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY election_start_date DESC, id"

	rows, err := r.slaveDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("查询选举列表失败", err)
	}
	defer rows.Close()

	var elections []*model.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, storageErr("扫描选举失败", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("迭代选举失败", err)
	}
	return elections, nil
}

// BatchUpdateElectionStatus 按当前时间批量刷新非取消状态的选举。
// 三条UPDATE条件互斥，放在同一事务中提交。返回状态发生变化的行数。
func (r *SQLRepository) BatchUpdateElectionStatus(ctx context.Context, now time.Time) (int64, error) {
	now = ts(now)
	cancelled := string(model.StatusCancelled)

	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("开始事务失败", err)
	}
	defer tx.Rollback()

	updates := []struct {
		status    model.ElectionStatus
		predicate string
		args      []any
	}{
		{model.StatusUpcoming, "election_start_date > ?", []any{now}},
		{model.StatusOngoing, "election_start_date <= ? AND election_end_date >= ?", []any{now, now}},
		{model.StatusCompleted, "election_end_date < ?", []any{now}},
	}

	var changed int64
	for _, u := range updates {
		args := append([]any{string(u.status), cancelled, string(u.status)}, u.args...)
		res, err := tx.ExecContext(ctx,
			"UPDATE elections SET status = ? WHERE status <> ? AND status <> ? AND "+u.predicate, args...)
		if err != nil {
			return 0, storageErr("更新选举状态失败", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, storageErr("获取更新结果失败", err)
		}
		changed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("提交事务失败", err)
	}
	return changed, nil
}

// CancelElection 将选举置为取消，已出正式结果的选举不可取消
func (r *SQLRepository) CancelElection(ctx context.Context, id string) error {
	res, err := r.masterDB.ExecContext(ctx,
		"UPDATE elections SET status = ? WHERE id = ? AND status <> ? AND is_official = ?",
		string(model.StatusCancelled), id, string(model.StatusCancelled), false)
	if err != nil {
		return storageErr("取消选举失败", err)
	}
	return r.requireAffected(ctx, res, id)
}

// MarkOfficial 将已结束的选举结果标记为正式，之后不可变更
func (r *SQLRepository) MarkOfficial(ctx context.Context, id string) error {
	res, err := r.masterDB.ExecContext(ctx,
		"UPDATE elections SET is_official = ? WHERE id = ? AND status = ? AND is_official = ?",
		true, id, string(model.StatusCompleted), false)
	if err != nil {
		return storageErr("标记正式结果失败", err)
	}
	return r.requireAffected(ctx, res, id)
}

// ArchiveElection 归档选举
func (r *SQLRepository) ArchiveElection(ctx context.Context, id string) error {
	res, err := r.masterDB.ExecContext(ctx,
		"UPDATE elections SET is_active = ? WHERE id = ? AND is_active = ?", false, id, true)
	if err != nil {
		return storageErr("归档选举失败", err)
	}
	return r.requireAffected(ctx, res, id)
}

// requireAffected 条件更新没有命中时区分"不存在"与"状态不允许"
func (r *SQLRepository) requireAffected(ctx context.Context, res sql.Result, electionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("获取更新结果失败", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.FindElection(ctx, electionID); err != nil {
		return err
	}
	return fmt.Errorf("选举 %s: %w", electionID, model.ErrInvalidTransition)
}

// ---------- 职位 ----------

const positionColumns = "id, election_id, title, winner_count, sort_order, created_at"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPosition(ctx context.Context, db execer, p *model.Position) error {
	_, err := db.ExecContext(ctx, "INSERT INTO positions ("+positionColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.ElectionID, p.Title, p.WinnerCount, p.SortOrder, ts(p.CreatedAt))
	if err != nil {
		return storageErr("保存职位失败", err)
	}
	return nil
}

// CreatePosition 为选举新增职位
func (r *SQLRepository) CreatePosition(ctx context.Context, p *model.Position) error {
	return insertPosition(ctx, r.masterDB, p)
}

// ListPositions 按顺序列出选举的职位
func (r *SQLRepository) ListPositions(ctx context.Context, electionID string) ([]*model.Position, error) {
	rows, err := r.masterDB.QueryContext(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE election_id = ? ORDER BY sort_order, created_at, id", electionID)
	if err != nil {
		return nil, storageErr("查询职位失败", err)
	}
	defer rows.Close()

	var positions []*model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.ElectionID, &p.Title, &p.WinnerCount, &p.SortOrder, &p.CreatedAt); err != nil {
			return nil, storageErr("扫描职位失败", err)
		}
		positions = append(positions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("迭代职位失败", err)
	}
	return positions, nil
}

// FindPosition 获取职位
func (r *SQLRepository) FindPosition(ctx context.Context, id string) (*model.Position, error) {
	var p model.Position
	err := r.masterDB.QueryRowContext(ctx, "SELECT "+positionColumns+" FROM positions WHERE id = ?", id).
		Scan(&p.ID, &p.ElectionID, &p.Title, &p.WinnerCount, &p.SortOrder, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("职位 %s: %w", id, model.ErrNotFound)
		}
		return nil, storageErr("查询职位失败", err)
	}
	return &p, nil
}

// ---------- 候选人 ----------

const candidateColumns = "id, user_id, election_id, position_id, status, platform, image_url, is_active, created_at"

func scanCandidate(row scanner) (*model.Candidate, error) {
	var c model.Candidate
	var status string
	err := row.Scan(&c.ID, &c.UserID, &c.ElectionID, &c.PositionID, &status, &c.Platform, &c.ImageURL, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = model.CandidateStatus(status)
	return &c, nil
}

// InsertCandidate 写入候选人报名，(user_id, election_id) 唯一
func (r *SQLRepository) InsertCandidate(ctx context.Context, c *model.Candidate) error {
	_, err := r.masterDB.ExecContext(ctx, "INSERT INTO candidates ("+candidateColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.UserID, c.ElectionID, c.PositionID, string(c.Status), c.Platform, c.ImageURL, c.IsActive, ts(c.CreatedAt))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("用户 %s 选举 %s: %w", c.UserID, c.ElectionID, model.ErrDuplicateCandidacy)
		}
		return storageErr("保存候选人失败", err)
	}
	return nil
}

// FindCandidate 获取候选人
func (r *SQLRepository) FindCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	row := r.masterDB.QueryRowContext(ctx, "SELECT "+candidateColumns+" FROM candidates WHERE id = ?", id)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("候选人 %s: %w", id, model.ErrCandidateNotFound)
		}
		return nil, storageErr("查询候选人失败", err)
	}
	return c, nil
}

// FindCandidateByUser 查询用户在某次选举中的报名，没有时返回nil
func (r *SQLRepository) FindCandidateByUser(ctx context.Context, userID, electionID string) (*model.Candidate, error) {
	row := r.masterDB.QueryRowContext(ctx,
		"SELECT "+candidateColumns+" FROM candidates WHERE user_id = ? AND election_id = ?", userID, electionID)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("查询候选人失败", err)
	}
	return c, nil
}

// ListCandidates 列出选举的全部候选人
func (r *SQLRepository) ListCandidates(ctx context.Context, electionID string) ([]*model.Candidate, error) {
	rows, err := r.slaveDB.QueryContext(ctx,
		"SELECT "+candidateColumns+" FROM candidates WHERE election_id = ? ORDER BY created_at, id", electionID)
	if err != nil {
		return nil, storageErr("查询候选人列表失败", err)
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, storageErr("扫描候选人失败", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("迭代候选人失败", err)
	}
	return candidates, nil
}

// UpdateCandidateStatus 仅当当前状态为from时更新为to
func (r *SQLRepository) UpdateCandidateStatus(ctx context.Context, id string, from, to model.CandidateStatus) error {
	res, err := r.masterDB.ExecContext(ctx,
		"UPDATE candidates SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
	if err != nil {
		return storageErr("更新候选人状态失败", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("获取更新结果失败", err)
	}
	if n == 0 {
		if _, err := r.FindCandidate(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("候选人 %s: %w", id, model.ErrInvalidTransition)
	}
	return nil
}

// ---------- 选票 ----------

// InsertVote 写入选票。唯一约束冲突转换为 ErrAlreadyVoted
func (r *SQLRepository) InsertVote(ctx context.Context, v *model.Vote) error {
	_, err := r.masterDB.ExecContext(ctx,
		"INSERT INTO votes (id, voter_id, election_id, position_id, candidate_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		v.ID, v.VoterID, v.ElectionID, v.PositionID, v.CandidateID, ts(v.CreatedAt))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("投票人 %s 职位 %s: %w", v.VoterID, v.PositionID, model.ErrAlreadyVoted)
		}
		return storageErr("保存选票失败", err)
	}
	return nil
}

// HasVoted 查询投票人是否已对该职位投票
func (r *SQLRepository) HasVoted(ctx context.Context, voterID, electionID, positionID string) (bool, error) {
	var count int
	err := r.masterDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM votes WHERE voter_id = ? AND election_id = ? AND position_id = ?",
		voterID, electionID, positionID).Scan(&count)
	if err != nil {
		return false, storageErr("查询投票记录失败", err)
	}
	return count > 0, nil
}

// VotedPositions 返回投票人在该选举中已投票的职位ID
func (r *SQLRepository) VotedPositions(ctx context.Context, voterID, electionID string) ([]string, error) {
	rows, err := r.masterDB.QueryContext(ctx,
		"SELECT position_id FROM votes WHERE voter_id = ? AND election_id = ? ORDER BY position_id", voterID, electionID)
	if err != nil {
		return nil, storageErr("查询投票记录失败", err)
	}
	defer rows.Close()

	positions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("扫描投票记录失败", err)
		}
		positions = append(positions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("迭代投票记录失败", err)
	}
	return positions, nil
}

// CountVotesByCandidate 按职位和候选人聚合票数
func (r *SQLRepository) CountVotesByCandidate(ctx context.Context, electionID string) ([]model.VoteCount, error) {
	rows, err := r.slaveDB.QueryContext(ctx, `SELECT position_id, candidate_id, COUNT(*) FROM votes
		WHERE election_id = ? GROUP BY position_id, candidate_id ORDER BY position_id, candidate_id`, electionID)
	if err != nil {
		return nil, storageErr("统计票数失败", err)
	}
	defer rows.Close()

	var counts []model.VoteCount
	for rows.Next() {
		var c model.VoteCount
		if err := rows.Scan(&c.PositionID, &c.CandidateID, &c.Votes); err != nil {
			return nil, storageErr("扫描票数失败", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("迭代票数失败", err)
	}
	return counts, nil
}

// CountDistinctVoters 统计在选举中至少投过一票的人数
func (r *SQLRepository) CountDistinctVoters(ctx context.Context, electionID string) (int, error) {
	var count int
	err := r.slaveDB.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT voter_id) FROM votes WHERE election_id = ?", electionID).Scan(&count)
	if err != nil {
		return 0, storageErr("统计投票人数失败", err)
	}
	return count, nil
}

// Close 关闭数据库连接
func (r *SQLRepository) Close() {
	if r.masterDB != nil {
		r.masterDB.Close()
	}
	if r.slaveDB != nil && r.slaveDB != r.masterDB {
		r.slaveDB.Close()
	}
}
