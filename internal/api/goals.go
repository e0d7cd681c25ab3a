package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/orchestrator"
	"github.com/example/goalbot/internal/safety"
)

const (
	minGoalLen = 10
	maxGoalLen = 500

	clarifyMessage = "Let's clarify your goal with a few questions:"
	planMessage    = "Your 30-day plan is ready!"
)

type questionView struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Hint       string `json:"hint,omitempty"`
}

type clarificationSession struct {
	GoalID         int64          `json:"goal_id"`
	Questions      []questionView `json:"questions"`
	Message        string         `json:"message"`
	CrisisDetected bool           `json:"crisis_detected,omitempty"`
}

type refinedGoalResult struct {
	GoalID         int64           `json:"goal_id"`
	OriginalGoal   string          `json:"original_goal"`
	RefinedGoal    *string         `json:"refined_goal"`
	GoalCategory   models.Category `json:"goal_category"`
	Reasoning      string          `json:"reasoning"`
	IsAchievable   bool            `json:"is_achievable_in_30_days"`
	CrisisDetected bool            `json:"crisis_detected,omitempty"`
}

type goalBreakdown struct {
	GoalID     int64              `json:"goal_id"`
	DailyTasks []models.DailyTask `json:"daily_tasks"`
	Milestones map[string]string  `json:"milestones"`
	Message    string             `json:"message"`
	Retried    bool               `json:"retried"`
}

type goalDetail struct {
	*models.Goal
	CheckInsCount int `json:"check_ins_count"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// loadGoal resolves the {id} path value within the caller's session.
func (s *Server) loadGoal(w http.ResponseWriter, r *http.Request) (*models.Goal, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid goal id")
		return nil, false
	}
	g, err := s.store.GetGoal(r.Context(), sessionID(r), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return g, true
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal string `json:"goal"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Goal)
	if n := utf8.RuneCountInString(text); n < minGoalLen || n > maxGoalLen {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("goal must be between %d and %d characters", minGoalLen, maxGoalLen))
		return
	}

	g := &models.Goal{SessionID: sessionID(r), OriginalGoal: text, Status: models.StatusClarifying}
	res, err := s.pipeline.Clarify(r.Context(), g.State())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g.Absorb(res.State)
	if err := s.store.CreateGoal(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("goal created", zap.Int64("goal_id", g.ID), zap.Bool("crisis", res.Crisis), zap.String("run_id", res.RunID))

	out := clarificationSession{GoalID: g.ID, Message: clarifyMessage, CrisisDetected: res.Crisis}
	for _, q := range g.ClarificationQuestions {
		out.Questions = append(out.Questions, questionView{QuestionID: q.ID, Question: q.Question, Hint: q.Hint})
	}
	respondJSON(w, http.StatusCreated, out)
}

func (s *Server) clarify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Answers == nil {
		respondError(w, http.StatusUnprocessableEntity, "answers are required")
		return
	}
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	if g.Status != models.StatusClarifying {
		respondError(w, http.StatusConflict, "Goal is not in clarification phase")
		return
	}

	st := g.State()
	st.ClarificationAnswers = req.Answers
	res, err := s.pipeline.Refine(r.Context(), st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Crisis {
		// answers are kept; the goal stays open for clarification
		g.ClarificationAnswers = req.Answers
		if err := s.store.UpdateGoal(r.Context(), g); err != nil {
			s.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, refinedGoalResult{
			GoalID:         g.ID,
			OriginalGoal:   g.OriginalGoal,
			Reasoning:      safety.CrisisMessage,
			CrisisDetected: true,
		})
		return
	}

	g.Absorb(res.State)
	g.Status = models.StatusRefining
	if err := s.store.UpdateGoal(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	out := refinedGoalResult{
		GoalID:       g.ID,
		OriginalGoal: g.OriginalGoal,
		RefinedGoal:  g.RefinedGoal,
		GoalCategory: g.GoalCategory,
		Reasoning:    g.RefinementReasoning,
	}
	if g.IsAchievable != nil {
		out.IsAchievable = *g.IsAchievable
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) breakdown(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	if g.Status != models.StatusClarifying && g.Status != models.StatusRefining {
		respondError(w, http.StatusConflict, "Goal already has a breakdown")
		return
	}
	st := g.State()
	if st.Unsafe() {
		respondError(w, http.StatusUnprocessableEntity, "Goal was flagged as unsafe and cannot be planned: "+g.RefinementReasoning)
		return
	}
	if g.Status == models.StatusClarifying {
		// refinement was skipped, so its gates have not run yet
		if orchestrator.InCrisis(st) {
			respondError(w, http.StatusUnprocessableEntity, safety.CrisisMessage)
			return
		}
		if v := safety.CheckGoal(g.OriginalGoal); v.Triggered {
			respondError(w, http.StatusUnprocessableEntity, v.Message)
			return
		}
	}

	res, err := s.pipeline.Breakdown(r.Context(), st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Unsafe {
		respondError(w, http.StatusUnprocessableEntity, "Goal was flagged as unsafe and cannot be planned")
		return
	}
	started := s.now()
	g.Absorb(res.State)
	g.Status = models.StatusActive
	g.CurrentDay = 0
	g.StartedAt = &started
	if err := s.store.UpdateGoal(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("plan created", zap.Int64("goal_id", g.ID), zap.Bool("retried", res.Retried), zap.Int("calls", res.Calls))
	respondJSON(w, http.StatusOK, goalBreakdown{
		GoalID:     g.ID,
		DailyTasks: g.DailyTasks,
		Milestones: g.Milestones,
		Message:    planMessage,
		Retried:    res.Retried,
	})
}

func (s *Server) abandon(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	if !g.Status.CanTransition(models.StatusAbandoned) {
		respondError(w, http.StatusConflict, fmt.Sprintf("Goal is already %s", g.Status))
		return
	}
	g.Status = models.StatusAbandoned
	if err := s.store.UpdateGoal(r.Context(), g); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	n, err := s.store.CountCheckIns(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, goalDetail{Goal: g, CheckInsCount: n})
}
