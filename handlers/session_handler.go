package handlers

import (
	"net/http"

	"quizlive/models"
	"quizlive/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *services.SessionService
	hub      *services.Hub
}

func NewSessionHandler(sessions *services.SessionService, hub *services.Hub) *SessionHandler {
	return &SessionHandler{sessions: sessions, hub: hub}
}

type StartSessionRequest struct {
	GameID uint `json:"game_id" binding:"required"`
}

type JoinSessionRequest struct {
	Pin         string `json:"pin" binding:"required"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	RejoinToken string `json:"rejoin_token"`
}

type SubmitAnswerRequest struct {
	QuestionIndex *int                   `json:"question_index" binding:"required"`
	Payload       services.AnswerPayload `json:"payload"`
}

type SetLockedRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

// JoinResponse carries the player's bearer token exactly once, at join
// time; it never appears in rosters or broadcasts.
type JoinResponse struct {
	Player models.Player `json:"player"`
	Token  string        `json:"token"`
}

func (h *SessionHandler) Start(c *gin.Context) {
	hostID, ok := hostIDFrom(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": err.Error()})
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), req.GameID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"session_id":      session.ID,
		"pin":             session.Pin,
		"state":           session.State,
		"total_questions": len(session.Snapshot),
	})
}

func (h *SessionHandler) Advance(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	hostID, ok := hostIDFrom(c)
	if !ok {
		return
	}

	session, err := h.sessions.Advance(c.Request.Context(), sessionID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.broadcastPhase(c, session)
	respond(c, http.StatusOK, gin.H{"state": session.State, "question_index": session.QuestionIndex})
}

func (h *SessionHandler) LockQuestion(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	hostID, ok := hostIDFrom(c)
	if !ok {
		return
	}

	session, err := h.sessions.LockQuestion(c.Request.Context(), sessionID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.broadcastPhase(c, session)
	respond(c, http.StatusOK, gin.H{"state": session.State, "question_index": session.QuestionIndex})
}

func (h *SessionHandler) End(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	hostID, ok := hostIDFrom(c)
	if !ok {
		return
	}

	session, err := h.sessions.End(c.Request.Context(), sessionID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToSession(session.ID, "session_ended", gin.H{"reason": "host_ended"})
	respond(c, http.StatusOK, gin.H{"state": session.State})
}

func (h *SessionHandler) SetLocked(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	hostID, ok := hostIDFrom(c)
	if !ok {
		return
	}

	var req SetLockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": err.Error()})
		return
	}

	if err := h.sessions.SetLocked(c.Request.Context(), sessionID, hostID, *req.Locked); err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastToSession(sessionID, "lobby_locked", gin.H{"locked": *req.Locked})
	respond(c, http.StatusOK, gin.H{"locked": *req.Locked})
}

func (h *SessionHandler) Join(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": err.Error()})
		return
	}

	player, err := h.sessions.Join(c.Request.Context(), req.Pin, req.Name, req.Image, req.RejoinToken)
	if err != nil {
		respondError(c, err)
		return
	}

	token := player.Token
	broadcast := *player
	broadcast.Token = ""
	h.hub.BroadcastToSession(player.SessionID, "player_joined", gin.H{"player": broadcast})

	respond(c, http.StatusOK, JoinResponse{Player: broadcast, Token: token})
}

func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": err.Error()})
		return
	}

	token := c.GetHeader("X-Player-Token")
	answer, err := h.sessions.Submit(c.Request.Context(), sessionID, token, *req.QuestionIndex, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	// Acknowledge the submission without revealing correctness; that
	// waits for the question to lock.
	h.hub.BroadcastToSession(sessionID, "answer_submitted", gin.H{
		"player_id":      answer.PlayerID,
		"question_index": answer.QuestionIndex,
	})
	respond(c, http.StatusOK, gin.H{"submitted_at": answer.SubmittedAt})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	view, err := h.sessions.View(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

func (h *SessionHandler) Observe(c *gin.Context) {
	pin := c.Param("pin")
	if pin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": "pin required"})
		return
	}

	view, err := h.sessions.Observe(c.Request.Context(), pin)
	if err != nil {
		respondError(c, err)
		return
	}
	view.Pin = ""
	respond(c, http.StatusOK, view)
}

func (h *SessionHandler) Roster(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	players, err := h.sessions.Roster(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, players)
}

func (h *SessionHandler) Leaderboard(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	leaderboard, err := h.sessions.Leaderboard(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, leaderboard)
}

// broadcastPhase pushes the phase change that just happened to every
// connected client, with the view redaction rules applied.
func (h *SessionHandler) broadcastPhase(c *gin.Context, session *models.GameSession) {
	view, err := h.sessions.View(c.Request.Context(), session.ID)
	if err != nil {
		return
	}

	switch session.State {
	case models.StateQuestionActive:
		h.hub.BroadcastToSession(session.ID, "question_open", gin.H{
			"question_index":  view.QuestionIndex,
			"question":        view.Question,
			"total_questions": view.TotalQuestions,
		})
	case models.StateQuestionLocked:
		h.hub.BroadcastToSession(session.ID, "question_locked", gin.H{
			"question_index": view.QuestionIndex,
			"question":       view.Question,
			"leaderboard":    view.Leaderboard,
		})
	case models.StateResults:
		h.hub.BroadcastToSession(session.ID, "results", gin.H{
			"leaderboard": view.Leaderboard,
		})
	case models.StateEnded:
		h.hub.BroadcastToSession(session.ID, "session_ended", gin.H{"reason": "finished"})
	}
}
