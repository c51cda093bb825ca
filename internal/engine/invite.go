package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pong/internal/models"
)

// Invite is a pending friend-match offer. The game identifier is allocated up
// front so accept/decline can reference it; the match itself is only created
// on accept.
type Invite struct {
	GameID    string
	From      string
	To        string
	CreatedAt time.Time
}

// CreateInvite offers a friend match to another connected player and notifies
// them over their socket.
func (e *Engine) CreateInvite(from, to string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if from == to {
		return "", ErrSelfInvite
	}
	if !e.connectedLocked(to) {
		return "", ErrNotConnected
	}
	inv := &Invite{
		GameID:    uuid.New().String(),
		From:      from,
		To:        to,
		CreatedAt: time.Now(),
	}
	e.invites[inv.GameID] = inv
	e.sendToPlayerLocked(to, models.Event{Type: models.EvtGameInvite, Payload: map[string]string{
		"gameId": inv.GameID,
		"from":   from,
	}})
	e.logger.Info("invite created", zap.String("gameId", inv.GameID), zap.String("from", from), zap.String("to", to))
	return inv.GameID, nil
}

// AcceptInvite turns a pending invite into a friend match with both sockets
// attached.
func (e *Engine) AcceptInvite(gameID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.invites[gameID]
	if !ok {
		return ErrInviteNotFound
	}
	if inv.To != playerID {
		return ErrNotYourInvite
	}
	if !e.connectedLocked(inv.From) || !e.connectedLocked(inv.To) {
		delete(e.invites, gameID)
		return ErrNotConnected
	}
	for _, pid := range []string{inv.From, inv.To} {
		if err := e.busyLocked(pid); err != nil {
			return err
		}
		if _, ok := e.playerTournament[pid]; ok {
			return ErrAlreadyInTournament
		}
	}
	delete(e.invites, gameID)

	m := e.createMatchLocked(inv.GameID, inv.From, inv.To, models.ModeFriend)
	e.attachLocked(m, inv.From)
	e.attachLocked(m, inv.To)
	e.broadcastLocked(m, e.configEventLocked(m))
	return nil
}

// DeclineInvite drops a pending invite and tells the inviter.
func (e *Engine) DeclineInvite(gameID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.invites[gameID]
	if !ok {
		return ErrInviteNotFound
	}
	if inv.To != playerID {
		return ErrNotYourInvite
	}
	delete(e.invites, gameID)
	e.sendToPlayerLocked(inv.From, models.Event{Type: models.EvtInviteDeclined, Payload: models.GameRef{GameID: gameID}})
	return nil
}

// voidInvitesLocked drops every pending invite involving a departed player,
// declining toward the inviter when the invitee is the one who left.
func (e *Engine) voidInvitesLocked(playerID string) {
	for id, inv := range e.invites {
		if inv.From != playerID && inv.To != playerID {
			continue
		}
		delete(e.invites, id)
		if inv.To == playerID {
			e.sendToPlayerLocked(inv.From, models.Event{Type: models.EvtInviteDeclined, Payload: models.GameRef{GameID: id}})
		}
	}
}
