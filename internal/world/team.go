package world

// Team display prefixes, indexed by team number. Odd ids (team 1) are
// labelled "Team 1" and even ids (team 0) "Team 2".
var teamPrefixes = [2]string{"Team 2; ", "Team 1; "}

func teamOf(shipID int) int {
	return shipID % 2
}

func teamPrefix(team int) string {
	return teamPrefixes[team]
}

// TeamScore returns the team's accrued score, which is the highest score held
// by any of its ships. Every kill credits all living members, so a new ship
// joins at this value.
func (w *World) TeamScore(team int) int {
	best := 0
	for _, ship := range w.ships {
		if ship.Team() == team && ship.Score > best {
			best = ship.Score
		}
	}
	return best
}
