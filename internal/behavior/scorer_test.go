package behavior

import (
	"testing"

	"sprintgym/internal/trace"
)

func decisionsFromContent(contents ...string) []trace.Decision {
	ds := make([]trace.Decision, 0, len(contents))
	for _, c := range contents {
		ds = append(ds, trace.Decision{Content: c})
	}
	return ds
}

func TestCatalogHasExactlyThirtyCodes(t *testing.T) {
	if len(Codes) != 30 {
		t.Fatalf("catalog must hold exactly 30 codes, has %d", len(Codes))
	}

	seen := map[string]bool{}
	for _, c := range Codes {
		if seen[c.Code] {
			t.Errorf("duplicate code %s", c.Code)
		}
		seen[c.Code] = true
		if c.Stage < 1 || c.Stage > 4 {
			t.Errorf("%s: stage %d out of range", c.Code, c.Stage)
		}
		if c.Name == "" || c.Description == "" || c.Category == "" || c.Heuristic == "" {
			t.Errorf("%s: incomplete record %+v", c.Code, c)
		}
	}

	// B-01..B-30, all present.
	for i := 1; i <= 30; i++ {
		code := codeID(i)
		if !seen[code] {
			t.Errorf("missing code %s", code)
		}
	}
}

func codeID(n int) string {
	if n < 10 {
		return "B-0" + string(rune('0'+n))
	}
	return "B-" + string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func TestEmptyExpectedScoresOne(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent("anything"), nil)
	if res.Score != 1.0 {
		t.Errorf("empty expectation must score 1.0, got %v", res.Score)
	}
}

func TestEmptyDecisionsNonEmptyExpectedScoresZero(t *testing.T) {
	s := NewScorer()
	res := s.Score(nil, []string{"B-01", "B-07"})
	if res.Score != 0.0 {
		t.Errorf("empty trace with expectations must score 0.0, got %v", res.Score)
	}
	if len(res.Missed) != 2 {
		t.Errorf("both codes should be missed: %v", res.Missed)
	}
}

func TestUnknownCodesSilentlyIgnored(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent("whatever"), []string{"B-99", "NOT-A-CODE"})
	if res.Score != 1.0 {
		t.Errorf("all-unknown expectation should score 1.0, got %v", res.Score)
	}
}

func TestOrderingHeuristicTestFirst(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent(
		"Writing test cases first",
		"Now implementing the feature",
	), []string{"B-07"})

	if res.Score != 1.0 {
		t.Errorf("B-07 should be detected, score %v", res.Score)
	}
	if len(res.Detected) != 1 || res.Detected[0] != "B-07" {
		t.Errorf("detected = %v, want [B-07]", res.Detected)
	}
}

func TestOrderingHeuristicWrongOrderNotDetected(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent(
		"Implementing the feature",
		"Writing tests afterwards",
	), []string{"B-07"})

	if res.Score != 0.0 {
		t.Errorf("implement-then-test should not satisfy B-07, score %v", res.Score)
	}
}

func TestOrderingSameDecisionCounts(t *testing.T) {
	// Single-cursor semantics: both markers in one decision detect the code.
	s := NewScorer()
	res := s.Score(decisionsFromContent("Write a failing test then implement the fix"), []string{"B-07"})
	if res.Score != 1.0 {
		t.Errorf("same-decision markers should detect B-07, score %v", res.Score)
	}
}

func TestIncrementalCommitsNeedsTwoSignals(t *testing.T) {
	s := NewScorer()

	one := s.Score(decisionsFromContent("commit the change"), []string{"B-09"})
	if one.Score != 0.0 {
		t.Errorf("one commit signal should not satisfy B-09, score %v", one.Score)
	}

	two := s.Score(decisionsFromContent("commit step one", "commit step two"), []string{"B-09"})
	if two.Score != 1.0 {
		t.Errorf("two commit signals should satisfy B-09, score %v", two.Score)
	}
}

func TestCommitToolCallsCountAsSignals(t *testing.T) {
	s := NewScorer()
	ds := []trace.Decision{
		{Content: "land it", Metadata: map[string]interface{}{
			"tool_calls": []map[string]interface{}{
				{"tool": "git", "op": "commit"},
				{"tool": "git", "op": "commit"},
			},
		}},
	}
	res := s.Score(ds, []string{"B-09"})
	if res.Score != 1.0 {
		t.Errorf("two commit tool calls should satisfy B-09, score %v", res.Score)
	}
}

func TestMinimalFixViaFilesChanged(t *testing.T) {
	s := NewScorer()
	ds := []trace.Decision{
		{Content: "patched it", Metadata: map[string]interface{}{
			"files_changed": []string{"a.go", "b.go"},
		}},
	}
	if res := s.Score(ds, []string{"B-03"}); res.Score != 1.0 {
		t.Errorf("two files changed should satisfy B-03, score %v", res.Score)
	}

	wide := []trace.Decision{
		{Content: "patched it", Metadata: map[string]interface{}{
			"files_changed": []string{"a.go", "b.go", "c.go"},
		}},
	}
	if res := s.Score(wide, []string{"B-03"}); res.Score != 0.0 {
		t.Errorf("three files changed should not satisfy B-03, score %v", res.Score)
	}
}

func TestMinimalFixViaKeyword(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent("going with a minimal fix here"), []string{"B-03"})
	if res.Score != 1.0 {
		t.Errorf("minimal-fix keyword should satisfy B-03, score %v", res.Score)
	}
}

func TestKeywordHeuristicMatchesContext(t *testing.T) {
	s := NewScorer()
	ds := []trace.Decision{{Context: "the requirement is ambiguous", Content: "proceeding"}}
	if res := s.Score(ds, []string{"B-17"}); res.Score != 1.0 {
		t.Errorf("context keywords should count, score %v", res.Score)
	}
}

func TestPartialDetection(t *testing.T) {
	s := NewScorer()
	res := s.Score(decisionsFromContent("checking edge cases in the boundary tests"),
		[]string{"B-04", "B-05"})
	if res.Score != 0.5 {
		t.Errorf("one of two detected should score 0.5, got %v", res.Score)
	}
}
