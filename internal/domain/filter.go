package domain

import (
	"net/url"
	"strconv"
	"time"
)

// FilterDateLayout is the wire format for date range bounds.
const FilterDateLayout = "2006-01-02"

// MatchFilter is a set of optional predicates over match history.
// A nil field imposes no constraint.
type MatchFilter struct {
	PlayerID     *string
	WinnerID     *string
	LoserID      *string
	StartDate    *time.Time
	EndDate      *time.Time
	MinEloChange *int
	MaxEloChange *int
	Limit        *int
	Offset       *int
}

func DefaultMatchFilter(limit int) MatchFilter {
	return MatchFilter{
		Limit:  Ptr(limit),
		Offset: Ptr(0),
	}
}

// Query serializes only the fields that are set.
func (f MatchFilter) Query() url.Values {
	q := url.Values{}
	setString(q, "player_id", f.PlayerID)
	setString(q, "winner_id", f.WinnerID)
	setString(q, "loser_id", f.LoserID)
	if f.StartDate != nil {
		q.Set("start_date", f.StartDate.Format(FilterDateLayout))
	}
	if f.EndDate != nil {
		q.Set("end_date", f.EndDate.Format(FilterDateLayout))
	}
	setInt(q, "min_elo_change", f.MinEloChange)
	setInt(q, "max_elo_change", f.MaxEloChange)
	setInt(q, "limit", f.Limit)
	setInt(q, "offset", f.Offset)
	return q
}

// Equal reports whether both filters constrain the same fields to the same values.
func (f MatchFilter) Equal(other MatchFilter) bool {
	return f.Query().Encode() == other.Query().Encode()
}

// IsZero reports whether no field is set.
func (f MatchFilter) IsZero() bool {
	return len(f.Query()) == 0
}

func setString(q url.Values, key string, v *string) {
	if v != nil && *v != "" {
		q.Set(key, *v)
	}
}

func setInt(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

func Ptr[T any](v T) *T {
	return &v
}

// ParseMatchFilter builds a filter from form or query values. Empty values
// leave the corresponding field unset.
func ParseMatchFilter(values url.Values) (MatchFilter, error) {
	var (
		f   MatchFilter
		err error
	)

	f.PlayerID = parseString(values, "player_id")
	f.WinnerID = parseString(values, "winner_id")
	f.LoserID = parseString(values, "loser_id")

	if f.StartDate, err = parseDate(values, "start_date"); err != nil {
		return MatchFilter{}, err
	}
	if f.EndDate, err = parseDate(values, "end_date"); err != nil {
		return MatchFilter{}, err
	}
	if f.MinEloChange, err = parseInt(values, "min_elo_change"); err != nil {
		return MatchFilter{}, err
	}
	if f.MaxEloChange, err = parseInt(values, "max_elo_change"); err != nil {
		return MatchFilter{}, err
	}
	if f.Limit, err = parseInt(values, "limit"); err != nil {
		return MatchFilter{}, err
	}
	if f.Offset, err = parseInt(values, "offset"); err != nil {
		return MatchFilter{}, err
	}

	return f, nil
}

func parseString(values url.Values, key string) *string {
	if v := values.Get(key); v != "" {
		return &v
	}
	return nil
}

func parseDate(values url.Values, key string) (*time.Time, error) {
	v := values.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(FilterDateLayout, v)
	if err != nil {
		return nil, NewValidationError(key, "invalid date for "+key+": "+v)
	}
	return &t, nil
}

func parseInt(values url.Values, key string) (*int, error) {
	v := values.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, NewValidationError(key, "invalid number for "+key+": "+v)
	}
	return &n, nil
}
