package console

import (
	"time"

	"ladder-console/internal/domain"
	"ladder-console/internal/service"
	"ladder-console/internal/session"
)

type PlayerRow struct {
	Rank     int           `json:"rank"`
	Player   domain.Player `json:"player"`
	WinRate  float64       `json:"win_rate"`
	MainName string        `json:"main_name,omitempty"`
	IconPath string        `json:"icon_path,omitempty"`
}

type CharacterRow struct {
	Character domain.Character `json:"character"`
	IconPath  string           `json:"icon_path"`
}

type MatchRow struct {
	Match       domain.Match `json:"match"`
	WinnerName  string       `json:"winner_name"`
	LoserName   string       `json:"loser_name"`
	DisplayTime string       `json:"display_time"`
}

// Snapshot is a read-only copy of the console state for rendering.
type Snapshot struct {
	View              View              `json:"view"`
	Loading           bool              `json:"loading"`
	Authenticated     bool              `json:"authenticated"`
	User              string            `json:"user,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	RemainingSeconds  int64             `json:"remaining_seconds"`
	Players           []PlayerRow       `json:"players"`
	Characters        []CharacterRow    `json:"characters"`
	Matches           []MatchRow        `json:"matches"`
	Draft             map[string]string `json:"draft"`
	HasAppliedFilters bool              `json:"has_applied_filters"`
	DraftPending      bool              `json:"draft_pending"`
	Filtering         bool              `json:"filtering"`
	SortKey           SortKey           `json:"sort_key"`
	SortDir           SortDirection     `json:"sort_dir"`
	Banner            *Banner           `json:"banner,omitempty"`
	Notice            *session.Notice   `json:"notice,omitempty"`
	Busy              map[string]bool   `json:"busy"`
}

// Snapshot reports the process-wide view. Callers serving a browser that
// does not own the session should hide it with Anonymous.
func (c *Console) Snapshot() Snapshot {
	// session state first; the manager takes its own lock
	sess, authenticated := c.sessions.Session()
	remaining := c.sessions.RemainingValiditySeconds()
	notice, hasNotice := c.sessions.LastNotice()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		View:              c.view,
		Loading:           c.loading,
		Authenticated:     authenticated,
		RemainingSeconds:  remaining,
		HasAppliedFilters: c.hasAppliedFilters,
		DraftPending:      !c.draft.Equal(c.applied),
		Filtering:         c.filtering,
		SortKey:           c.sortKey,
		SortDir:           c.sortDir,
		Draft:             flattenFilter(c.draft),
		Busy:              make(map[string]bool, len(c.inflight)),
	}
	if authenticated {
		snap.User = sess.User
		expiresAt := sess.ExpiresAt
		snap.ExpiresAt = &expiresAt
	}
	if c.banner != nil {
		b := *c.banner
		snap.Banner = &b
	}
	if hasNotice {
		snap.Notice = &notice
	}
	for cmd := range c.inflight {
		snap.Busy[string(cmd)] = true
	}

	characterNames := make(map[string]domain.Character, len(c.characterList))
	for _, ch := range c.characterList {
		characterNames[ch.ID] = ch
		snap.Characters = append(snap.Characters, CharacterRow{Character: ch, IconPath: c.characters.IconPath(ch)})
	}

	for i, p := range SortPlayers(c.playerList, c.sortKey, c.sortDir) {
		row := PlayerRow{Rank: i + 1, Player: p, WinRate: winRate(p.Wins, p.MatchesPlayed)}
		if ch, ok := characterNames[p.Main]; ok {
			row.MainName = ch.Name
			row.IconPath = c.characters.IconPath(ch)
		}
		snap.Players = append(snap.Players, row)
	}

	for _, m := range c.displayMatchesLocked() {
		snap.Matches = append(snap.Matches, MatchRow{
			Match:       m,
			WinnerName:  service.DisplayName(c.playerList, m.WinnerID),
			LoserName:   service.DisplayName(c.playerList, m.LoserID),
			DisplayTime: FormatTimestamp(m.Timestamp),
		})
	}

	return snap
}

func flattenFilter(f domain.MatchFilter) map[string]string {
	q := f.Query()
	out := make(map[string]string, len(q))
	for k := range q {
		out[k] = q.Get(k)
	}
	return out
}

// Anonymous strips the operator session from the snapshot.
func (s Snapshot) Anonymous() Snapshot {
	s.Authenticated = false
	s.User = ""
	s.ExpiresAt = nil
	s.RemainingSeconds = 0
	return s
}
