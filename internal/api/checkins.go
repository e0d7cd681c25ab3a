package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/goalbot/internal/agents"
	"github.com/example/goalbot/internal/models"
	"github.com/example/goalbot/internal/progress"
	"github.com/example/goalbot/internal/store"
)

const (
	minResponseLen = 10
	maxResponseLen = 1000
	maxObstacleLen = 500
)

type checkInRequest struct {
	TaskCompleted   bool    `json:"task_completed"`
	UserResponse    string  `json:"user_response"`
	Obstacles       *string `json:"obstacles"`
	ConfidenceLevel int     `json:"confidence_level"`
}

func (req *checkInRequest) validate() error {
	req.UserResponse = strings.TrimSpace(req.UserResponse)
	if n := utf8.RuneCountInString(req.UserResponse); n < minResponseLen || n > maxResponseLen {
		return fmt.Errorf("user_response must be between %d and %d characters", minResponseLen, maxResponseLen)
	}
	if req.Obstacles != nil && utf8.RuneCountInString(*req.Obstacles) > maxObstacleLen {
		return fmt.Errorf("obstacles must be at most %d characters", maxObstacleLen)
	}
	if req.ConfidenceLevel < 1 || req.ConfidenceLevel > 5 {
		return fmt.Errorf("confidence_level must be between 1 and 5")
	}
	return nil
}

type checkInResponse struct {
	models.CheckIn
	CrisisDetected bool              `json:"crisis_detected"`
	Assessment     models.Assessment `json:"agent_assessment"`
	Status         models.Status     `json:"goal_status"`
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	if g.Status != models.StatusActive {
		respondError(w, http.StatusConflict, "Goal is not active")
		return
	}
	day := g.CurrentDay + 1
	if day > models.TotalDays {
		respondError(w, http.StatusConflict, "Goal already completed (30 days)")
		return
	}

	recent, err := s.store.RecentCheckIns(r.Context(), g.ID, store.RecentLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.pipeline.CheckIn(r.Context(), g.ID, agents.CheckInInput{
		Goal:            g.GoalText(),
		Day:             day,
		Task:            g.TaskForDay(day),
		TaskCompleted:   req.TaskCompleted,
		UserResponse:    req.UserResponse,
		Obstacles:       req.Obstacles,
		ConfidenceLevel: req.ConfidenceLevel,
		Recent:          recent,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.now()
	ci := &models.CheckIn{
		DayNumber:       day,
		TaskCompleted:   req.TaskCompleted,
		UserResponse:    req.UserResponse,
		Obstacles:       req.Obstacles,
		ConfidenceLevel: req.ConfidenceLevel,
		AgentFeedback:   res.Feedback,
		AdjustedPlan:    res.AdjustedPlan,
		CheckedInAt:     now,
	}
	g.CurrentDay = day
	if day == models.TotalDays {
		g.Status = models.StatusCompleted
		g.CompletedAt = &now
	}
	if err := s.store.AddCheckIn(r.Context(), g, ci); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("check-in recorded",
		zap.Int64("goal_id", g.ID),
		zap.Int("day", day),
		zap.Bool("crisis", res.CrisisDetected),
		zap.String("momentum", res.Assessment.Momentum),
	)
	respondJSON(w, http.StatusOK, checkInResponse{
		CheckIn:        *ci,
		CrisisDetected: res.CrisisDetected,
		Assessment:     res.Assessment,
		Status:         g.Status,
	})
}

func (s *Server) listCheckIns(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	cis, err := s.store.CheckIns(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cis)
}

func (s *Server) progressSummary(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	cis, err := s.store.CheckIns(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, progress.Summarize(g, cis))
}
