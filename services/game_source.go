package services

import (
	"context"
	"errors"
	"fmt"

	"quizlive/models"

	"gorm.io/gorm"
)

// GameSource supplies the authored quiz a session snapshots at start.
// The engine only ever reads through it.
type GameSource interface {
	// SnapshotQuestions returns the game's questions frozen in play
	// order, or a KindNotFound error if the game does not exist or is
	// not owned by hostID.
	SnapshotQuestions(ctx context.Context, gameID, hostID uint) ([]models.QuestionSnapshot, error)
}

// GormGameSource reads authored games from the database.
type GormGameSource struct {
	db *gorm.DB
}

func NewGormGameSource(db *gorm.DB) *GormGameSource {
	return &GormGameSource{db: db}
}

func (s *GormGameSource) SnapshotQuestions(ctx context.Context, gameID, hostID uint) ([]models.QuestionSnapshot, error) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Where("id = ? AND host_id = ?", gameID, hostID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`)
		}).
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("game %d not found", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}

	snapshot := make([]models.QuestionSnapshot, 0, len(game.Questions))
	for _, q := range game.Questions {
		qs := models.QuestionSnapshot{
			ID:       q.ID,
			Type:     q.Type,
			Title:    q.Title,
			Duration: q.Duration,
			Points:   q.Points,
			Hint:     q.Hint,
		}
		for _, a := range q.Answers {
			qs.Answers = append(qs.Answers, models.AnswerSnapshot{
				ID:      a.ID,
				Title:   a.Title,
				Correct: a.Correct,
			})
		}
		snapshot = append(snapshot, qs)
	}
	return snapshot, nil
}
