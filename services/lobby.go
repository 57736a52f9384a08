package services

import (
	"context"
	"log"
	"sort"
	"strings"

	"quizlive/models"

	"github.com/google/uuid"
)

// Join adds a player to the session behind the PIN and issues the
// bearer token the client must present on every later call. When a
// rejoin token is supplied and matches an existing player, that
// identity is reused instead of creating a new one, regardless of the
// session's current phase.
func (s *SessionService) Join(ctx context.Context, pin, name, image, rejoinToken string) (*models.Player, error) {
	sessionID, err := s.pins.Resolve(pin)
	if err != nil {
		return nil, err
	}

	var joined *models.Player
	_, err = s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		if rejoinToken != "" {
			for i := range session.Players {
				if session.Players[i].Token == rejoinToken {
					joined = &session.Players[i]
					return nil
				}
			}
		}

		if session.State != models.StateLobby {
			return lockedf("session %d is already in progress", session.ID)
		}
		if session.Locked {
			return lockedf("session %d is locked to new players", session.ID)
		}

		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return validationf("player name must not be empty")
		}
		if len(trimmed) > models.MaxPlayerNameLen {
			return validationf("player name must be at most %d characters", models.MaxPlayerNameLen)
		}

		session.Players = append(session.Players, models.Player{
			SessionID: session.ID,
			Name:      trimmed,
			Image:     image,
			Token:     uuid.NewString(),
			JoinedAt:  s.now(),
		})
		joined = &session.Players[len(session.Players)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	player := *joined
	log.Printf("Player %d (%s) joined session %d", player.ID, player.Name, player.SessionID)
	return &player, nil
}

// SetLocked toggles the join gate. Locking never evicts players who
// already joined; it only blocks new joins.
func (s *SessionService) SetLocked(ctx context.Context, sessionID, hostID uint, locked bool) error {
	_, err := s.mutate(ctx, sessionID, func(session *models.GameSession) error {
		if err := requireHost(session, hostID); err != nil {
			return err
		}
		if session.State == models.StateEnded {
			return illegalTransitionf("session %d has ended", session.ID)
		}
		session.Locked = locked
		return nil
	})
	return err
}

// Roster returns the session's players in join order. The order is
// stable across reads: joinedAt first, player id as the tiebreak.
func (s *SessionService) Roster(ctx context.Context, sessionID uint) ([]models.Player, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return sortedRoster(session), nil
}

// sortedRoster orders players by join time and strips their bearer
// tokens for external consumption.
func sortedRoster(session *models.GameSession) []models.Player {
	players := append([]models.Player(nil), session.Players...)
	sort.SliceStable(players, func(a, b int) bool {
		if players[a].JoinedAt.Equal(players[b].JoinedAt) {
			return players[a].ID < players[b].ID
		}
		return players[a].JoinedAt.Before(players[b].JoinedAt)
	})
	for i := range players {
		players[i].Token = ""
	}
	return players
}

// PlayerByToken authenticates a player bearer token within a session.
func (s *SessionService) PlayerByToken(session *models.GameSession, token string) (*models.Player, error) {
	if token == "" {
		return nil, unauthorizedf("missing player token")
	}
	for i := range session.Players {
		if session.Players[i].Token == token {
			return &session.Players[i], nil
		}
	}
	return nil, unauthorizedf("unknown player token for session %d", session.ID)
}
