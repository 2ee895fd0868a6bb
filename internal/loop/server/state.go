package server

import (
	"sort"
	"time"

	"github.com/tomz197/spacewars/internal/object"
)

// TopScoresLimit is how many entries the leaderboard keeps.
const TopScoresLimit = 5

// ShipInfo is a read-only copy of one ship's visible state.
type ShipInfo struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	HP     int     `json:"hp"`
	Score  int     `json:"score"`
	Team   int     `json:"team"`
	Alive  bool    `json:"alive"`
	Active bool    `json:"active"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// TopScoreEntry is a single entry on the leaderboard.
type TopScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	id    int    // Deterministic tie-break when scores are equal
}

// Snapshot is an immutable view of the world after one tick. Readers never
// take the world lock.
type Snapshot struct {
	Tick        uint
	Frame       string // Exactly the text broadcast for this tick
	Ships       []ShipInfo
	TopScores   []TopScoreEntry
	Projectiles int
	Stars       int
	Connections int
	Taken       time.Time
}

func shipInfos(ships []*object.Ship) []ShipInfo {
	infos := make([]ShipInfo, 0, len(ships))
	for _, s := range ships {
		infos = append(infos, ShipInfo{
			ID:     s.ID,
			Name:   s.Name,
			HP:     s.HP,
			Score:  s.Score,
			Team:   s.Team(),
			Alive:  s.Alive(),
			Active: s.Active(),
			X:      s.Location.X,
			Y:      s.Location.Y,
		})
	}
	return infos
}

// topScores returns the best active ships, highest score first, lower id
// first on ties.
func topScores(ships []ShipInfo, limit int) []TopScoreEntry {
	entries := make([]TopScoreEntry, 0, len(ships))
	for _, s := range ships {
		if !s.Active {
			continue
		}
		entries = append(entries, TopScoreEntry{Name: s.Name, Score: s.Score, id: s.ID})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].id < entries[j].id
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
