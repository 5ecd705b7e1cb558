package behavior

import (
	"fmt"
	"strings"

	"sprintgym/internal/logging"
	"sprintgym/internal/trace"
)

// Scorer detects expected behavioral codes in a flattened decision trace.
type Scorer struct{}

// NewScorer returns a scorer over the built-in taxonomy.
func NewScorer() *Scorer { return &Scorer{} }

// ScoreResult reports which expected codes were detected.
type ScoreResult struct {
	Score    float64  `json:"score"`
	Expected []string `json:"expected"`
	Detected []string `json:"detected"`
	Missed   []string `json:"missed"`
}

// Score runs each expected code's heuristic over the decisions. The score is
// detected/expected; an empty expectation scores 1.0, and a non-empty
// expectation over an empty trace scores 0.0. Codes missing from the catalog
// are silently ignored.
func (s *Scorer) Score(decisions []trace.Decision, expected []string) ScoreResult {
	result := ScoreResult{Expected: expected, Detected: []string{}, Missed: []string{}}

	var known []Code
	for _, code := range expected {
		if c, ok := Lookup(code); ok {
			known = append(known, c)
		}
	}

	if len(known) == 0 {
		result.Score = 1.0
		return result
	}
	if len(decisions) == 0 {
		result.Score = 0.0
		for _, c := range known {
			result.Missed = append(result.Missed, c.Code)
		}
		return result
	}

	for _, c := range known {
		if s.detect(c, decisions) {
			result.Detected = append(result.Detected, c.Code)
		} else {
			result.Missed = append(result.Missed, c.Code)
		}
	}
	result.Score = float64(len(result.Detected)) / float64(len(known))
	logging.Reward("behavioral score %.3f (%d/%d detected)", result.Score, len(result.Detected), len(known))
	return result
}

func (s *Scorer) detect(c Code, decisions []trace.Decision) bool {
	switch c.Heuristic {
	case HeuristicKeyword:
		return detectKeyword(c.Code, decisions)
	case HeuristicOrdering:
		return detectOrdering(c.Code, decisions)
	case HeuristicCommitCount:
		return detectIncrementalCommits(decisions)
	case HeuristicMinimalFix:
		return detectMinimalFix(decisions)
	default:
		return false
	}
}

// detectKeyword matches any token against the content or context of any
// decision, case-insensitive substring.
func detectKeyword(code string, decisions []trace.Decision) bool {
	keywords := keywordSets[code]
	for _, d := range decisions {
		hay := strings.ToLower(d.Content + " " + d.Context)
		for _, kw := range keywords {
			if strings.Contains(hay, kw) {
				return true
			}
		}
	}
	return false
}

// detectOrdering walks decisions in order looking for the first marker, then
// looks for the second marker from that same decision onward. A decision
// containing both markers therefore counts as detected.
func detectOrdering(code string, decisions []trace.Decision) bool {
	markers, ok := orderingMarkers[code]
	if !ok {
		return false
	}
	firstIdx := -1
	for i, d := range decisions {
		if matchesAny(d, markers[0]) {
			firstIdx = i
			break
		}
	}
	if firstIdx < 0 {
		return false
	}
	for i := firstIdx; i < len(decisions); i++ {
		if matchesAny(decisions[i], markers[1]) {
			return true
		}
	}
	return false
}

// matchesAny checks content, action kind, and tool-call metadata for any of
// the markers.
func matchesAny(d trace.Decision, markers []string) bool {
	hay := strings.ToLower(d.Content + " " + string(d.ActionKind) + " " + toolCallText(d))
	for _, m := range markers {
		if strings.Contains(hay, m) {
			return true
		}
	}
	return false
}

// detectIncrementalCommits requires at least two commit signals: commit
// mentions in content plus git commit tool calls, without dedup.
func detectIncrementalCommits(decisions []trace.Decision) bool {
	signals := 0
	for _, d := range decisions {
		signals += strings.Count(strings.ToLower(d.Content), "commit")
		signals += strings.Count(strings.ToLower(toolCallText(d)), "commit")
	}
	return signals >= 2
}

// detectMinimalFix is satisfied when any decision changed at most two files,
// or when the minimal-fix keywords match.
func detectMinimalFix(decisions []trace.Decision) bool {
	for _, d := range decisions {
		if n, ok := filesChangedCount(d); ok && n <= 2 {
			return true
		}
	}
	return detectKeyword("B-03", decisions)
}

func filesChangedCount(d trace.Decision) (int, bool) {
	raw, ok := d.Metadata["files_changed"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case []string:
		return len(v), true
	case []interface{}:
		return len(v), true
	default:
		return 0, false
	}
}

// toolCallText flattens tool-call metadata into a searchable string.
func toolCallText(d trace.Decision) string {
	raw, ok := d.Metadata["tool_calls"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", raw)
}
