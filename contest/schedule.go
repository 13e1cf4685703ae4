package contest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PenaltyStep applies Factor to attempts submitted at least AfterSec seconds
// after the penalty start.
type PenaltyStep struct {
	AfterSec int64   `json:"after_sec" toml:"after_sec"`
	Factor   float64 `json:"factor" toml:"factor"`
}

// Schedule is ordered by AfterSec, strictly ascending.
type Schedule []PenaltyStep

// Factor returns the multiplier of the latest step not after elapsed, or 1.0
// before the first step.
func (s Schedule) Factor(elapsed time.Duration) float64 {
	if elapsed < 0 {
		return 1.0
	}
	secs := int64(elapsed / time.Second)
	f := 1.0
	for _, step := range s {
		if step.AfterSec > secs {
			break
		}
		f = step.Factor
	}
	return f
}

func (s Schedule) Validate() error {
	for i, step := range s {
		if step.AfterSec < 0 {
			return ErrInvalidPenaltySchedule("penalty threshold must not be negative")
		}
		if !(step.Factor > 0 && step.Factor <= 1) {
			return ErrInvalidPenaltySchedule(fmt.Sprintf("penalty factor %v is outside (0, 1]", step.Factor))
		}
		if i > 0 && s[i-1].AfterSec >= step.AfterSec {
			return ErrInvalidPenaltySchedule("penalty thresholds must be strictly increasing")
		}
	}
	return nil
}

// ParseSchedule builds a schedule from a mapping of elapsed seconds to
// factor. Keys and values may be numbers or numeric strings.
func ParseSchedule(raw map[string]any) (Schedule, error) {
	s := make(Schedule, 0, len(raw))
	for k, v := range raw {
		secs, err := strconv.ParseFloat(strings.TrimSpace(k), 64)
		if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return nil, ErrInvalidPenaltySchedule(fmt.Sprintf("threshold %q is not a number", k))
		}
		f, err := toFloat(v)
		if err != nil {
			return nil, ErrInvalidPenaltySchedule(fmt.Sprintf("factor for %q is not a number", k)).SetDebug(err)
		}
		s = append(s, PenaltyStep{AfterSec: int64(secs), Factor: f})
	}
	return normalize(s)
}

// ParseScheduleYAML reads the homework form notation: a yaml mapping whose
// keys are hours since the penalty start.
func ParseScheduleYAML(doc string) (Schedule, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, ErrInvalidPenaltySchedule("penalty rules are not valid yaml").SetDebug(err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrInvalidPenaltySchedule("penalty rules must be a mapping")
	}
	m := root.Content[0]
	s := make(Schedule, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, ErrInvalidPenaltySchedule("penalty rules must map hours to factors")
		}
		hours, err := strconv.ParseFloat(k.Value, 64)
		if err != nil {
			return nil, ErrInvalidPenaltySchedule(fmt.Sprintf("threshold %q is not a number", k.Value))
		}
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, ErrInvalidPenaltySchedule(fmt.Sprintf("factor %q is not a number", v.Value))
		}
		s = append(s, PenaltyStep{AfterSec: int64(hours * 60 * 60), Factor: f})
	}
	return normalize(s)
}

// FormatYAML renders the schedule in hours, two decimals at most.
func (s Schedule) FormatYAML() string {
	var b strings.Builder
	for _, step := range s {
		hours := math.Round(float64(step.AfterSec)/36) / 100
		fmt.Fprintf(&b, "%s: %s\n",
			strconv.FormatFloat(hours, 'f', -1, 64),
			strconv.FormatFloat(step.Factor, 'f', -1, 64))
	}
	return b.String()
}

func normalize(s Schedule) (Schedule, error) {
	sort.Slice(s, func(i, j int) bool { return s[i].AfterSec < s[j].AfterSec })
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("unsupported factor type %T", v)
}
