package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rohanthewiz/serr"

	"github.com/example/goalbot/internal/models"
)

type goalCols struct {
	refined     sql.NullString
	questions   sql.NullString
	answers     sql.NullString
	achievable  sql.NullBool
	tasks       sql.NullString
	milestones  sql.NullString
	startedAt   sql.NullString
	completedAt sql.NullString
}

func goalColumns(g *models.Goal) (goalCols, error) {
	var c goalCols
	var err error
	c.refined = nullString(g.RefinedGoal)
	if c.questions, err = nullJSON(g.ClarificationQuestions, len(g.ClarificationQuestions) == 0); err != nil {
		return c, err
	}
	if c.answers, err = nullJSON(g.ClarificationAnswers, len(g.ClarificationAnswers) == 0); err != nil {
		return c, err
	}
	if c.tasks, err = nullJSON(g.DailyTasks, len(g.DailyTasks) == 0); err != nil {
		return c, err
	}
	if c.milestones, err = nullJSON(g.Milestones, len(g.Milestones) == 0); err != nil {
		return c, err
	}
	if g.IsAchievable != nil {
		c.achievable = sql.NullBool{Bool: *g.IsAchievable, Valid: true}
	}
	c.startedAt = nullTime(g.StartedAt)
	c.completedAt = nullTime(g.CompletedAt)
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(row scanner) (*models.Goal, error) {
	var (
		g                           models.Goal
		c                           goalCols
		category, reasoning, status sql.NullString
		createdAt                   string
	)
	err := row.Scan(&g.ID, &g.SessionID, &g.OriginalGoal, &c.refined, &category,
		&c.questions, &c.answers, &c.achievable, &reasoning,
		&c.tasks, &c.milestones, &g.CurrentDay, &status, &createdAt, &c.startedAt, &c.completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, serr.Wrap(err, "scan goal")
	}
	g.GoalCategory = models.Category(category.String)
	g.RefinementReasoning = reasoning.String
	g.Status = models.Status(status.String)
	if c.refined.Valid {
		v := c.refined.String
		g.RefinedGoal = &v
	}
	if c.achievable.Valid {
		v := c.achievable.Bool
		g.IsAchievable = &v
	}
	for _, f := range []struct {
		col sql.NullString
		dst any
	}{
		{c.questions, &g.ClarificationQuestions},
		{c.answers, &g.ClarificationAnswers},
		{c.tasks, &g.DailyTasks},
		{c.milestones, &g.Milestones},
	} {
		if !f.col.Valid || f.col.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.col.String), f.dst); err != nil {
			return nil, serr.Wrap(err, "decode goal column")
		}
	}
	if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, serr.Wrap(err, "parse created_at")
	}
	if g.StartedAt, err = parseNullTime(c.startedAt); err != nil {
		return nil, err
	}
	if g.CompletedAt, err = parseNullTime(c.completedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func nullJSON(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, serr.Wrap(err, "encode json column")
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, serr.Wrap(err, "parse timestamp")
	}
	return &t, nil
}
