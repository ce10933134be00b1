package models

// Team is a tournament entrant. Records and ratings come from the external
// registration service; once a tournament leaves setup the roster is frozen
// and record updates only influence seeding of future tournaments.
type Team struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Seed        *int    `json:"seed,omitempty" db:"seed"`
	PowerRating float64 `json:"power_rating" db:"power_rating"`
	Wins        int     `json:"wins" db:"wins"`
	Losses      int     `json:"losses" db:"losses"`
	Ties        int     `json:"ties" db:"ties"`
	Region      string  `json:"region,omitempty" db:"region"`
	Division    string  `json:"division,omitempty" db:"division"`

	// HeadToHead maps opponent team ID to wins against that opponent.
	HeadToHead map[string]int `json:"head_to_head,omitempty" db:"-"`
}

// WinPercentage counts a tie as half a win. Zero games played is 0, not NaN.
func (t *Team) WinPercentage() float64 {
	total := t.Wins + t.Losses + t.Ties
	if total == 0 {
		return 0
	}
	return (float64(t.Wins) + 0.5*float64(t.Ties)) / float64(total)
}
