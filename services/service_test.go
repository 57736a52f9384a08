package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizlive/models"
)

// fakeClock lets tests move the engine's idea of "now" forward without
// sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeGameSource serves canned snapshots keyed by game id.
type fakeGameSource struct {
	games map[uint][]models.QuestionSnapshot
}

func (f *fakeGameSource) SnapshotQuestions(ctx context.Context, gameID, hostID uint) ([]models.QuestionSnapshot, error) {
	snapshot, ok := f.games[gameID]
	if !ok {
		return nil, notFoundf("game %d not found", gameID)
	}
	out := make([]models.QuestionSnapshot, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

const (
	testGameID = uint(7)
	testHostID = uint(42)
)

func singleQuestion() models.QuestionSnapshot {
	return models.QuestionSnapshot{
		ID:       101,
		Type:     models.QuestionTypeSingle,
		Title:    "Capital of France?",
		Duration: 10,
		Points:   1000,
		Answers: []models.AnswerSnapshot{
			{ID: 1, Title: "Paris", Correct: true},
			{ID: 2, Title: "Lyon"},
			{ID: 3, Title: "Nice"},
		},
	}
}

func multipleQuestion() models.QuestionSnapshot {
	return models.QuestionSnapshot{
		ID:       102,
		Type:     models.QuestionTypeMultiple,
		Title:    "Which are primes?",
		Duration: 20,
		Points:   500,
		Answers: []models.AnswerSnapshot{
			{ID: 4, Title: "2", Correct: true},
			{ID: 5, Title: "4"},
			{ID: 6, Title: "5", Correct: true},
		},
	}
}

func typedQuestion() models.QuestionSnapshot {
	return models.QuestionSnapshot{
		ID:       103,
		Type:     models.QuestionTypeTypeAnswer,
		Title:    "Largest planet?",
		Duration: 15,
		Points:   800,
		Answers: []models.AnswerSnapshot{
			{ID: 7, Title: "Jupiter", Correct: true},
		},
	}
}

// newTestService wires the engine against the in-memory store and a
// fake game definition: one SINGLE, one MULTIPLE, one TYPE_ANSWER
// question.
func newTestService(t *testing.T) (*SessionService, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	source := &fakeGameSource{games: map[uint][]models.QuestionSnapshot{
		testGameID: {singleQuestion(), multipleQuestion(), typedQuestion()},
	}}

	svc := NewSessionService(NewMemoryStore(), source, NewPinRegistry(), NewScoringEngine())
	svc.now = clock.Now
	return svc, clock
}

// startSession launches a session and returns it in LOBBY state.
func startSession(t *testing.T, svc *SessionService) *models.GameSession {
	t.Helper()

	session, err := svc.Start(context.Background(), testGameID, testHostID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return session
}

// joinPlayer joins and returns the player including its token.
func joinPlayer(t *testing.T, svc *SessionService, pin, name string) *models.Player {
	t.Helper()

	player, err := svc.Join(context.Background(), pin, name, "", "")
	if err != nil {
		t.Fatalf("Join(%s) failed: %v", name, err)
	}
	return player
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
