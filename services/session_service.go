package services

import (
	"context"
	"log"
	"sync"
	"time"

	"quizlive/models"
)

// SessionService drives the session lifecycle:
//
//	LOBBY -> {QUESTION_ACTIVE <-> QUESTION_LOCKED} -> RESULTS -> ENDED
//
// Every state-changing operation runs as one read-modify-write under
// that session's mutex, so a lockQuestion racing a submit resolves
// deterministically. Question deadlines are enforced lazily on every
// access and additionally by a per-question timer, both funneling into
// the same idempotent locking step.
type SessionService struct {
	store   SessionStore
	games   GameSource
	pins    *PinRegistry
	scoring *ScoringEngine

	mu    sync.Mutex
	locks map[uint]*sync.Mutex

	// startMu serializes the active-session check in Start so two
	// concurrent starts for one game cannot both pass it.
	startMu sync.Mutex

	timerMu sync.Mutex
	timers  map[uint]*time.Timer

	// now is swappable in tests.
	now func() time.Time
}

func NewSessionService(store SessionStore, games GameSource, pins *PinRegistry, scoring *ScoringEngine) *SessionService {
	return &SessionService{
		store:   store,
		games:   games,
		pins:    pins,
		scoring: scoring,
		locks:   make(map[uint]*sync.Mutex),
		timers:  make(map[uint]*time.Timer),
		now:     time.Now,
	}
}

// Start launches a new session for a game: allocates a PIN, snapshots
// the questions and opens the lobby. Fails with KindConflict while the
// game already has a non-ended session.
func (s *SessionService) Start(ctx context.Context, gameID, hostID uint) (*models.GameSession, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if existing, ok, err := s.store.ActiveByGame(ctx, gameID); err != nil {
		return nil, err
	} else if ok {
		return nil, conflictf("game %d already has active session %d", gameID, existing.ID)
	}

	snapshot, err := s.games.SnapshotQuestions(ctx, gameID, hostID)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, validationf("game %d has no questions", gameID)
	}

	now := s.now()
	session := &models.GameSession{
		GameID:        gameID,
		HostID:        hostID,
		State:         models.StateLobby,
		QuestionIndex: -1,
		StartedAt:     &now,
		CreatedAt:     now,
		Snapshot:      snapshot,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	pin, err := s.pins.Allocate(session.ID)
	if err != nil {
		s.discard(ctx, session.ID)
		return nil, err
	}
	session.Pin = pin
	if err := s.store.Save(ctx, session); err != nil {
		s.pins.Release(session.ID)
		s.discard(ctx, session.ID)
		return nil, err
	}

	log.Printf("Session %d started for game %d with pin %s (%d questions)", session.ID, gameID, pin, len(snapshot))
	return session, nil
}

// discard removes a half-created session after a failed Start so it
// never blocks the game's active-session check.
func (s *SessionService) discard(ctx context.Context, sessionID uint) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		log.Printf("Failed to discard session %d after aborted start: %v", sessionID, err)
	}
}

// Advance moves the session forward: lobby -> first question, locked
// question -> next question or results, results -> ended. Advancing
// out of an open question is illegal; it must be locked first.
func (s *SessionService) Advance(ctx context.Context, sessionID, hostID uint) (*models.GameSession, error) {
	return s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		if err := requireHost(session, hostID); err != nil {
			return err
		}

		switch session.State {
		case models.StateLobby:
			s.openQuestion(session, 0)

		case models.StateQuestionLocked:
			next := session.QuestionIndex + 1
			if next < len(session.Snapshot) {
				s.openQuestion(session, next)
			} else {
				session.State = models.StateResults
				session.QuestionStartedAt = nil
				log.Printf("Session %d moved to results", session.ID)
			}

		case models.StateResults:
			s.endSession(session)

		case models.StateQuestionActive:
			return illegalTransitionf("question %d is still open; lock it before advancing", session.QuestionIndex)

		default:
			return illegalTransitionf("cannot advance from state %s", session.State)
		}
		return nil
	})
}

// LockQuestion closes the current question window and grades it.
// Locking an already-locked question is a no-op so the host action and
// the duration timer can race safely.
func (s *SessionService) LockQuestion(ctx context.Context, sessionID, hostID uint) (*models.GameSession, error) {
	return s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		if err := requireHost(session, hostID); err != nil {
			return err
		}

		switch session.State {
		case models.StateQuestionActive:
			s.lockCurrent(session)
		case models.StateQuestionLocked:
			// Already locked by the timer or a concurrent host call.
		default:
			return illegalTransitionf("no open question to lock in state %s", session.State)
		}
		return nil
	})
}

// End force-terminates the session from any state. It is the host's
// universal abort hatch and is idempotent.
func (s *SessionService) End(ctx context.Context, sessionID, hostID uint) (*models.GameSession, error) {
	return s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		if err := requireHost(session, hostID); err != nil {
			return err
		}
		if session.State != models.StateEnded {
			s.endSession(session)
		}
		return nil
	})
}

// Session returns the aggregate after applying any elapsed question
// deadline. The store is only written when the deadline check actually
// transitioned the session.
func (s *SessionService) Session(ctx context.Context, sessionID uint) (*models.GameSession, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.applyDeadline(session) {
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// ResolvePin maps a human-entered PIN to its active session id.
func (s *SessionService) ResolvePin(pin string) (uint, error) {
	return s.pins.Resolve(pin)
}

// openQuestion transitions into QUESTION_ACTIVE for the given index
// and arms the deadline timer. Caller holds the session lock.
func (s *SessionService) openQuestion(session *models.GameSession, index int) {
	now := s.now()
	session.State = models.StateQuestionActive
	session.QuestionIndex = index
	session.QuestionStartedAt = &now

	question := session.CurrentQuestion()
	s.armTimer(session.ID, index, time.Duration(question.Duration)*time.Second)
	log.Printf("Session %d opened question %d (%ds window)", session.ID, index, question.Duration)
}

// lockCurrent is the single QUESTION_ACTIVE -> QUESTION_LOCKED step
// shared by the host action, the timer and the lazy deadline check.
// Grading runs here and nowhere else, so it runs once per question.
func (s *SessionService) lockCurrent(session *models.GameSession) {
	session.State = models.StateQuestionLocked
	s.scoring.GradeCurrentQuestion(session)
	s.cancelTimer(session.ID)
	log.Printf("Session %d locked question %d", session.ID, session.QuestionIndex)
}

func (s *SessionService) endSession(session *models.GameSession) {
	now := s.now()
	session.State = models.StateEnded
	session.EndedAt = &now
	session.QuestionStartedAt = nil
	s.pins.Release(session.ID)
	s.cancelTimer(session.ID)
	log.Printf("Session %d ended", session.ID)
}

// applyDeadline locks the current question if its window has elapsed.
// Returns true when it changed the aggregate.
func (s *SessionService) applyDeadline(session *models.GameSession) bool {
	deadline, ok := session.QuestionDeadline()
	if !ok || s.now().Before(deadline) {
		return false
	}
	s.lockCurrent(session)
	return true
}

// mutate runs fn as an atomic read-modify-write on the session. An
// elapsed question deadline is applied (and persisted) first, even
// when fn itself rejects the operation.
func (s *SessionService) mutate(ctx context.Context, sessionID uint, fn func(*models.GameSession) error) (*models.GameSession, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	expired := s.applyDeadline(session)

	if err := fn(session); err != nil {
		if expired {
			if saveErr := s.store.Save(ctx, session); saveErr != nil {
				log.Printf("Failed to persist deadline lock for session %d: %v", sessionID, saveErr)
			}
		}
		return nil, err
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) sessionLock(sessionID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// armTimer schedules the question deadline. The callback goes through
// the normal mutate path, so it is a no-op if the host locked or
// advanced first, or if the session ended.
func (s *SessionService) armTimer(sessionID uint, questionIndex int, d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[sessionID]; ok {
		t.Stop()
	}
	s.timers[sessionID] = time.AfterFunc(d, func() {
		s.lockOnDeadline(sessionID, questionIndex)
	})
}

func (s *SessionService) cancelTimer(sessionID uint) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[sessionID]; ok {
		t.Stop()
		delete(s.timers, sessionID)
	}
}

func (s *SessionService) lockOnDeadline(sessionID uint, questionIndex int) {
	_, err := s.mutate(context.Background(), sessionID, func(session *models.GameSession) error {
		if session.State == models.StateQuestionActive && session.QuestionIndex == questionIndex {
			s.lockCurrent(session)
		}
		return nil
	})
	if err != nil {
		log.Printf("Deadline lock for session %d question %d failed: %v", sessionID, questionIndex, err)
	}
}

func requireHost(session *models.GameSession, hostID uint) error {
	if session.HostID != hostID {
		return unauthorizedf("host %d does not own session %d", hostID, session.ID)
	}
	return nil
}
