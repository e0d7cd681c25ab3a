// Package store persists goals and their daily check-ins in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohanthewiz/serr"
	_ "modernc.org/sqlite"

	"github.com/example/goalbot/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateCheckIn = errors.New("already checked in for this day")
)

// RecentLimit is how many earlier check-ins the check-in stage sees.
const RecentLimit = 5

// Fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	DBPath string
	db     *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, serr.Wrap(err, "resolve db path")
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, serr.Wrap(err, "ensure db dir")
	}
	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, serr.Wrap(err, "open db")
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	s := &Store{DBPath: absPath, db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	original_goal TEXT NOT NULL,
	refined_goal TEXT,
	goal_category TEXT,
	clarification_questions TEXT,
	clarification_answers TEXT,
	is_achievable INTEGER,
	refinement_reasoning TEXT,
	daily_tasks TEXT,
	milestones TEXT,
	current_day INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_goals_session ON goals(session_id, created_at);

CREATE TABLE IF NOT EXISTS check_ins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id INTEGER NOT NULL REFERENCES goals(id),
	day_number INTEGER NOT NULL,
	task_completed INTEGER NOT NULL,
	user_response TEXT NOT NULL,
	obstacles TEXT,
	confidence_level INTEGER NOT NULL,
	agent_feedback TEXT,
	adjusted_plan TEXT,
	checked_in_at TEXT NOT NULL,
	UNIQUE(goal_id, day_number)
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return serr.Wrap(err, "create schema")
	}
	return nil
}

// CreateGoal inserts g and sets its ID and CreatedAt.
func (s *Store) CreateGoal(ctx context.Context, g *models.Goal) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	cols, err := goalColumns(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (session_id, original_goal, refined_goal, goal_category,
			clarification_questions, clarification_answers, is_achievable, refinement_reasoning,
			daily_tasks, milestones, current_day, status, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.SessionID, g.OriginalGoal, cols.refined, string(g.GoalCategory),
		cols.questions, cols.answers, cols.achievable, g.RefinementReasoning,
		cols.tasks, cols.milestones, g.CurrentDay, string(g.Status),
		g.CreatedAt.UTC().Format(timeLayout), cols.startedAt, cols.completedAt)
	if err != nil {
		return serr.Wrap(err, "insert goal")
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return serr.Wrap(err, "read goal id")
	}
	return nil
}

// UpdateGoal writes every mutable field of g.
func (s *Store) UpdateGoal(ctx context.Context, g *models.Goal) error {
	return updateGoal(ctx, s.db, g)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateGoal(ctx context.Context, db execer, g *models.Goal) error {
	cols, err := goalColumns(g)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE goals SET refined_goal = ?, goal_category = ?, clarification_questions = ?,
			clarification_answers = ?, is_achievable = ?, refinement_reasoning = ?,
			daily_tasks = ?, milestones = ?, current_day = ?, status = ?,
			started_at = ?, completed_at = ?
		WHERE id = ? AND session_id = ?
	`, cols.refined, string(g.GoalCategory), cols.questions,
		cols.answers, cols.achievable, g.RefinementReasoning,
		cols.tasks, cols.milestones, g.CurrentDay, string(g.Status),
		cols.startedAt, cols.completedAt, g.ID, g.SessionID)
	if err != nil {
		return serr.Wrap(err, "update goal")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const goalSelect = `
	SELECT id, session_id, original_goal, refined_goal, goal_category,
		clarification_questions, clarification_answers, is_achievable, refinement_reasoning,
		daily_tasks, milestones, current_day, status, created_at, started_at, completed_at
	FROM goals`

// GetGoal loads a goal owned by session.
func (s *Store) GetGoal(ctx context.Context, session string, id int64) (*models.Goal, error) {
	row := s.db.QueryRowContext(ctx, goalSelect+` WHERE id = ? AND session_id = ?`, id, session)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGoals returns the session's goals, newest first.
func (s *Store) ListGoals(ctx context.Context, session string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, goalSelect+` WHERE session_id = ? ORDER BY created_at DESC, id DESC`, session)
	if err != nil {
		return nil, serr.Wrap(err, "list goals")
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "iterate goals")
	}
	return goals, nil
}

// AddCheckIn stores ci and advances g to ci.DayNumber in one transaction.
// The caller sets g's day, status and completion time beforehand.
func (s *Store) AddCheckIn(ctx context.Context, g *models.Goal, ci *models.CheckIn) error {
	if ci.CheckedInAt.IsZero() {
		ci.CheckedInAt = time.Now().UTC()
	}
	ci.GoalID = g.ID
	adjusted, err := nullJSON(ci.AdjustedPlan, ci.AdjustedPlan == nil)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM check_ins WHERE goal_id = ? AND day_number = ?`, ci.GoalID, ci.DayNumber).Scan(&existing)
	if err == nil {
		return ErrDuplicateCheckIn
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return serr.Wrap(err, "check existing check-in")
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO check_ins (goal_id, day_number, task_completed, user_response, obstacles,
			confidence_level, agent_feedback, adjusted_plan, checked_in_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ci.GoalID, ci.DayNumber, ci.TaskCompleted, ci.UserResponse, nullString(ci.Obstacles),
		ci.ConfidenceLevel, ci.AgentFeedback, adjusted, ci.CheckedInAt.UTC().Format(timeLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateCheckIn
		}
		return serr.Wrap(err, "insert check-in")
	}
	if ci.ID, err = res.LastInsertId(); err != nil {
		return serr.Wrap(err, "read check-in id")
	}
	if err := updateGoal(ctx, tx, g); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return serr.Wrap(err, "commit transaction")
	}
	return nil
}

const checkInSelect = `
	SELECT id, goal_id, day_number, task_completed, user_response, obstacles,
		confidence_level, agent_feedback, adjusted_plan, checked_in_at
	FROM check_ins`

// CheckIns returns every check-in of a goal by day.
func (s *Store) CheckIns(ctx context.Context, goalID int64) ([]models.CheckIn, error) {
	return s.queryCheckIns(ctx, checkInSelect+` WHERE goal_id = ? ORDER BY day_number ASC`, goalID)
}

// RecentCheckIns returns up to limit of the latest check-ins, latest first.
func (s *Store) RecentCheckIns(ctx context.Context, goalID int64, limit int) ([]models.CheckIn, error) {
	return s.queryCheckIns(ctx, checkInSelect+` WHERE goal_id = ? ORDER BY day_number DESC LIMIT ?`, goalID, limit)
}

func (s *Store) CountCheckIns(ctx context.Context, goalID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_ins WHERE goal_id = ?`, goalID).Scan(&n); err != nil {
		return 0, serr.Wrap(err, "count check-ins")
	}
	return n, nil
}

func (s *Store) queryCheckIns(ctx context.Context, query string, args ...any) ([]models.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, serr.Wrap(err, "query check-ins")
	}
	defer rows.Close()

	out := []models.CheckIn{}
	for rows.Next() {
		var (
			ci        models.CheckIn
			obstacles sql.NullString
			feedback  sql.NullString
			adjusted  sql.NullString
			at        string
		)
		if err := rows.Scan(&ci.ID, &ci.GoalID, &ci.DayNumber, &ci.TaskCompleted, &ci.UserResponse, &obstacles,
			&ci.ConfidenceLevel, &feedback, &adjusted, &at); err != nil {
			return nil, serr.Wrap(err, "scan check-in")
		}
		if obstacles.Valid {
			v := obstacles.String
			ci.Obstacles = &v
		}
		ci.AgentFeedback = feedback.String
		if adjusted.Valid && adjusted.String != "" {
			ci.AdjustedPlan = &models.PlanAdjustment{}
			if err := json.Unmarshal([]byte(adjusted.String), ci.AdjustedPlan); err != nil {
				return nil, serr.Wrap(err, "decode adjusted plan")
			}
		}
		if ci.CheckedInAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, serr.Wrap(err, "parse check-in time")
		}
		out = append(out, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "iterate check-ins")
	}
	return out, nil
}
