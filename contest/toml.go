package contest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// contestToml is the file format operators keep contest definitions in.
// Penalty keys are seconds after penalty_since.
type contestToml struct {
	ID           string         `toml:"id,omitempty"`
	DomainID     string         `toml:"domain_id"`
	Kind         string         `toml:"kind"`
	Title        string         `toml:"title"`
	Content      string         `toml:"content,omitempty"`
	OwnerUID     string         `toml:"owner_uid,omitempty"`
	Rule         string         `toml:"rule"`
	BeginAt      time.Time      `toml:"begin_at"`
	EndAt        time.Time      `toml:"end_at"`
	Problems     []string       `toml:"problems"`
	PenaltySince *time.Time     `toml:"penalty_since,omitempty"`
	Penalty      map[string]any `toml:"penalty,omitempty"`
	RateLimit    int            `toml:"rate_limit,omitempty"`
	Scoreboard   *bool          `toml:"show_scoreboard,omitempty"`
}

// ParseToml reads and validates a contest definition. A missing id gets a
// fresh one.
func ParseToml(data []byte) (Contest, error) {
	var raw contestToml
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Contest{}, fmt.Errorf("failed to parse contest toml: %w", err)
	}

	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return Contest{}, err
	}
	rule, err := ParseRule(raw.Rule)
	if err != nil {
		return Contest{}, err
	}
	c := Contest{
		ID:                 uuid.New(),
		DomainID:           raw.DomainID,
		Kind:               kind,
		Title:              raw.Title,
		Content:            raw.Content,
		Rule:               rule,
		BeginAt:            raw.BeginAt.UTC(),
		EndAt:              raw.EndAt.UTC(),
		ProblemIDs:         raw.Problems,
		RateLimit:          raw.RateLimit,
		ScoreboardOverride: raw.Scoreboard,
	}
	if raw.ID != "" {
		if c.ID, err = uuid.Parse(raw.ID); err != nil {
			return Contest{}, fmt.Errorf("bad contest id: %w", err)
		}
	}
	if raw.OwnerUID != "" {
		if c.OwnerUID, err = uuid.Parse(raw.OwnerUID); err != nil {
			return Contest{}, fmt.Errorf("bad owner uid: %w", err)
		}
	}
	if raw.PenaltySince != nil {
		since := raw.PenaltySince.UTC()
		c.PenaltySince = &since
	}
	if len(raw.Penalty) > 0 {
		if c.Penalty, err = ParseSchedule(raw.Penalty); err != nil {
			return Contest{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return Contest{}, err
	}
	return c, nil
}

func FormatToml(c Contest) ([]byte, error) {
	raw := contestToml{
		ID:           c.ID.String(),
		DomainID:     c.DomainID,
		Kind:         c.Kind.String(),
		Title:        c.Title,
		Content:      c.Content,
		Rule:         c.Rule.String(),
		BeginAt:      c.BeginAt,
		EndAt:        c.EndAt,
		Problems:     c.ProblemIDs,
		PenaltySince: c.PenaltySince,
		RateLimit:    c.RateLimit,
		Scoreboard:   c.ScoreboardOverride,
	}
	if c.OwnerUID != uuid.Nil {
		raw.OwnerUID = c.OwnerUID.String()
	}
	if len(c.Penalty) > 0 {
		raw.Penalty = make(map[string]any, len(c.Penalty))
		for _, step := range c.Penalty {
			raw.Penalty[strconv.FormatInt(step.AfterSec, 10)] = step.Factor
		}
	}
	return toml.Marshal(raw)
}
