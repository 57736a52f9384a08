package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizlive/models"
)

func TestSubmitRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	ana := joinPlayer(t, svc, session.Pin, "Ana")

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if _, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{2}}); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	// The first answer is final; no late "change my answer".
	_, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindConflict)

	s, err := svc.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if len(s.Answers) != 1 {
		t.Fatalf("expected 1 stored answer, got %d", len(s.Answers))
	}
	if s.Answers[0].SelectedAnswerIDs[0] != 2 {
		t.Error("rejected duplicate overwrote the original answer")
	}
}

// TestConcurrentDuplicateSubmits races N identical submissions for one
// (session, question, player) key: exactly one may land.
func TestConcurrentDuplicateSubmits(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	ana := joinPlayer(t, svc, session.Pin, "Ana")

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	const n = 20
	var accepted, duplicate atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
			switch {
			case err == nil:
				accepted.Add(1)
			case KindOf(err) == KindConflict:
				duplicate.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("expected exactly 1 accepted submission, got %d", accepted.Load())
	}
	if duplicate.Load() != n-1 {
		t.Errorf("expected %d duplicate rejections, got %d", n-1, duplicate.Load())
	}

	s, err := svc.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if len(s.Answers) != 1 {
		t.Errorf("expected 1 stored answer, got %d", len(s.Answers))
	}
}

func TestSubmitRejectsStaleQuestionIndex(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	ana := joinPlayer(t, svc, session.Pin, "Ana")

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := svc.LockQuestion(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("LockQuestion failed: %v", err)
	}
	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance to question 1 failed: %v", err)
	}

	// A submission for question 0 after the host moved to question 1
	// must not be recorded against question 1.
	_, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindIllegalTransition)

	s, err := svc.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if len(s.Answers) != 0 {
		t.Errorf("stale submission was recorded: %+v", s.Answers)
	}
}

func TestSubmitOutsideActiveQuestion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	ana := joinPlayer(t, svc, session.Pin, "Ana")

	// Still in lobby
	_, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindIllegalTransition)

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := svc.LockQuestion(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("LockQuestion failed: %v", err)
	}

	// Locked question no longer accepts answers
	_, err = svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindIllegalTransition)
}

func TestSubmitRequiresValidPlayerToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	joinPlayer(t, svc, session.Pin, "Ana")

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	_, err := svc.Submit(ctx, session.ID, "", 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindUnauthorized)

	_, err = svc.Submit(ctx, session.ID, "bogus-token", 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindUnauthorized)
}

func TestSubmitPayloadValidation(t *testing.T) {
	cases := []struct {
		name          string
		questionIndex int
		payload       AnswerPayload
		wantErr       bool
	}{
		{"single with one valid id", 0, AnswerPayload{SelectedAnswerIDs: []uint{1}}, false},
		{"single with no selection", 0, AnswerPayload{}, true},
		{"single with two selections", 0, AnswerPayload{SelectedAnswerIDs: []uint{1, 2}}, true},
		{"single with foreign answer id", 0, AnswerPayload{SelectedAnswerIDs: []uint{99}}, true},
		{"multiple with two valid ids", 1, AnswerPayload{SelectedAnswerIDs: []uint{4, 6}}, false},
		{"multiple with empty selection", 1, AnswerPayload{}, true},
		{"multiple with repeated id", 1, AnswerPayload{SelectedAnswerIDs: []uint{4, 4}}, true},
		{"typed with text", 2, AnswerPayload{Text: "Jupiter"}, false},
		{"typed with blank text", 2, AnswerPayload{Text: "   "}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			session := startSession(t, svc)
			ana := joinPlayer(t, svc, session.Pin, "Ana")

			// Advance until the question under test is open.
			for i := 0; i <= tc.questionIndex; i++ {
				if i > 0 {
					if _, err := svc.LockQuestion(ctx, session.ID, testHostID); err != nil {
						t.Fatalf("LockQuestion failed: %v", err)
					}
				}
				if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
					t.Fatalf("Advance failed: %v", err)
				}
			}

			_, err := svc.Submit(ctx, session.ID, ana.Token, tc.questionIndex, tc.payload)
			if tc.wantErr {
				wantKind(t, err, KindValidation)
			} else if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
		})
	}
}

func TestDeadlineClosesSubmissions(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	session := startSession(t, svc)
	ana := joinPlayer(t, svc, session.Pin, "Ana")

	if _, err := svc.Advance(ctx, session.ID, testHostID); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	clock.Advance(11 * time.Second)

	// The submit itself triggers the lazy lock and is then rejected.
	_, err := svc.Submit(ctx, session.ID, ana.Token, 0, AnswerPayload{SelectedAnswerIDs: []uint{1}})
	wantKind(t, err, KindIllegalTransition)

	s, err := svc.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if s.State != models.StateQuestionLocked {
		t.Errorf("expected locked state after expired submit, got %s", s.State)
	}
}
