package voice

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
)

// ErrEmptyReport means no usable section was found in the report.
var ErrEmptyReport = errors.New("interview report has no sections")

// Section is one normalised evaluation section.
type Section struct {
	Section         string `json:"section"`
	Score           int    `json:"score"`
	Strength        string `json:"strength"`
	Weaknesses      string `json:"weaknesses"`
	GeneralOverview string `json:"generalOverview"`
}

var firstInt = regexp.MustCompile(`\d+`)

// ParseScore accepts a JSON number or a string such as "80/100" and returns
// the first integer. Anything else is 0.
func ParseScore(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if m := firstInt.FindString(s); m != "" {
			n, _ := strconv.Atoi(m)
			return n
		}
	}
	return 0
}

func str(m map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

// NormalizeReport converts raw report entries into sections. Entries with an
// error key or that are not objects are dropped.
func NormalizeReport(entries []json.RawMessage) ([]Section, error) {
	out := make([]Section, 0, len(entries))
	for _, raw := range entries {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil || m == nil {
			continue
		}
		if _, bad := m["error"]; bad {
			continue
		}
		s := Section{
			Section:         str(m, "section"),
			Score:           ParseScore(m["score"]),
			Strength:        str(m, "strength"),
			Weaknesses:      str(m, "weaknesses"),
			GeneralOverview: str(m, "general_overview", "general overview"),
		}
		if s.Section == "" {
			s.Section = "Unknown"
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrEmptyReport
	}
	return out, nil
}

// OverallScore is the rounded mean of the section scores.
func OverallScore(sections []Section) int {
	if len(sections) == 0 {
		return 0
	}
	sum := 0
	for _, s := range sections {
		sum += s.Score
	}
	return int(math.Round(float64(sum) / float64(len(sections))))
}
