package engine

// departLocked runs the full departure cascade for a player, in layer order:
// matchmaking queue, pending invites, tournament membership, then the
// player's own match. A tournament cancellation removes its rounds first, so
// the match step below cannot double-resolve a canceled round.
func (e *Engine) departLocked(playerID string) {
	e.dequeueLocked(playerID)
	e.voidInvitesLocked(playerID)

	if tid, ok := e.playerTournament[playerID]; ok {
		if t, ok := e.tournaments[tid]; ok {
			switch t.Status {
			case TourneyWaiting:
				e.tournamentRemovePlayerLocked(t, playerID)
			case TourneySemifinal, TourneyFinal:
				e.cancelTournamentLocked(t, "participant disconnected")
			}
		}
	}

	if mid, ok := e.playerMatch[playerID]; ok {
		if m, ok := e.matches[mid]; ok {
			e.playerLeftMatchLocked(m, playerID)
		}
	}
}
