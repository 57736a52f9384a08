package services

import (
	"context"
	"log"
	"strings"

	"quizlive/models"
)

// AnswerPayload is a player's submission for one question. Which field
// applies depends on the question type.
type AnswerPayload struct {
	SelectedAnswerIDs []uint `json:"selected_answer_ids,omitempty"`
	Text              string `json:"text,omitempty"`
}

// Submit records a player's answer for the current question. The
// server-side questionIndex is authoritative: a submission for any
// other index is rejected, so a client racing the host's advance can
// never land an answer on the wrong question. A player's first
// accepted answer is final; later attempts fail with KindConflict.
func (s *SessionService) Submit(ctx context.Context, sessionID uint, playerToken string, questionIndex int, payload AnswerPayload) (*models.SessionAnswer, error) {
	var submitted *models.SessionAnswer
	_, err := s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		player, err := s.PlayerByToken(session, playerToken)
		if err != nil {
			return err
		}

		if session.State != models.StateQuestionActive {
			return illegalTransitionf("no question is accepting answers in state %s", session.State)
		}
		if questionIndex != session.QuestionIndex {
			return illegalTransitionf("question %d is stale; session is on question %d", questionIndex, session.QuestionIndex)
		}

		for _, existing := range session.Answers {
			if existing.QuestionIndex == questionIndex && existing.PlayerID == player.ID {
				return conflictf("player %d already answered question %d", player.ID, questionIndex)
			}
		}

		question := session.CurrentQuestion()
		if err := validatePayload(question, payload); err != nil {
			return err
		}

		session.Answers = append(session.Answers, models.SessionAnswer{
			SessionID:         session.ID,
			QuestionIndex:     questionIndex,
			PlayerID:          player.ID,
			SelectedAnswerIDs: payload.SelectedAnswerIDs,
			Text:              payload.Text,
			SubmittedAt:       s.now(),
		})
		submitted = &session.Answers[len(session.Answers)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	answer := *submitted
	log.Printf("Session %d question %d: answer from player %d", answer.SessionID, answer.QuestionIndex, answer.PlayerID)
	return &answer, nil
}

func validatePayload(question *models.QuestionSnapshot, payload AnswerPayload) error {
	switch question.Type {
	case models.QuestionTypeSingle:
		if len(payload.SelectedAnswerIDs) != 1 {
			return validationf("single-choice question requires exactly one selected answer")
		}
		return validateSelection(question, payload.SelectedAnswerIDs)

	case models.QuestionTypeMultiple:
		if len(payload.SelectedAnswerIDs) == 0 {
			return validationf("multiple-choice question requires at least one selected answer")
		}
		return validateSelection(question, payload.SelectedAnswerIDs)

	case models.QuestionTypeTypeAnswer:
		if strings.TrimSpace(payload.Text) == "" {
			return validationf("typed answer must not be empty")
		}
		return nil
	}
	return validationf("unknown question type %q", question.Type)
}

func validateSelection(question *models.QuestionSnapshot, selected []uint) error {
	known := make(map[uint]bool, len(question.Answers))
	for _, a := range question.Answers {
		known[a.ID] = true
	}
	seen := make(map[uint]bool, len(selected))
	for _, id := range selected {
		if !known[id] {
			return validationf("answer %d does not belong to this question", id)
		}
		if seen[id] {
			return validationf("answer %d selected twice", id)
		}
		seen[id] = true
	}
	return nil
}
