package services

import (
	"context"
	"sync"

	"quizlive/models"
)

// MemoryStore is an in-memory SessionStore for tests and single-node
// deployments. Aggregates are deep-copied on the way in and out so a
// caller can never mutate stored state outside the engine's locks.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       uint
	nextPlayerID uint
	nextAnswerID uint
	sessions     map[uint]*models.GameSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:       1,
		nextPlayerID: 1,
		nextAnswerID: 1,
		sessions:     make(map[uint]*models.GameSession),
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session.ID = m.nextID
	m.nextID++
	m.sessions[session.ID] = copySession(session)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID uint) (*models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFoundf("session %d not found", sessionID)
	}
	return copySession(session), nil
}

func (m *MemoryStore) Save(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; !ok {
		return notFoundf("session %d not found", session.ID)
	}
	// Assign ids to new children in place, mirroring what the database
	// store does for the caller's struct.
	for i := range session.Players {
		if session.Players[i].ID == 0 {
			session.Players[i].ID = m.nextPlayerID
			m.nextPlayerID++
		}
	}
	for i := range session.Answers {
		if session.Answers[i].ID == 0 {
			session.Answers[i].ID = m.nextAnswerID
			m.nextAnswerID++
		}
	}
	m.sessions[session.ID] = copySession(session)
	return nil
}

func (m *MemoryStore) ActiveByGame(ctx context.Context, gameID uint) (*models.GameSession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.GameID == gameID && session.Active() {
			return copySession(session), true, nil
		}
	}
	return nil, false, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func copySession(s *models.GameSession) *models.GameSession {
	out := *s
	out.Snapshot = append([]models.QuestionSnapshot(nil), s.Snapshot...)
	for i, q := range out.Snapshot {
		out.Snapshot[i].Answers = append([]models.AnswerSnapshot(nil), q.Answers...)
	}
	out.Players = append([]models.Player(nil), s.Players...)
	out.Answers = make([]models.SessionAnswer, len(s.Answers))
	for i, a := range s.Answers {
		out.Answers[i] = a
		out.Answers[i].SelectedAnswerIDs = append([]uint(nil), a.SelectedAnswerIDs...)
	}
	return &out
}
