// Package behavior holds the closed behavioral taxonomy (B-01..B-30) and the
// heuristic scorer that detects codes in decision traces. The taxonomy is a
// default: consumers may score externally and feed the scalar straight into
// the reward calculator.
package behavior

// Code is a frozen taxonomy record. Category names are exactly the episode
// type names from the scenario catalog.
type Code struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Stage       int    `json:"stage"`
	Category    string `json:"category"`
	Heuristic   string `json:"heuristic"`
}

// Heuristic family names.
const (
	HeuristicKeyword     = "keyword"
	HeuristicOrdering    = "ordering"
	HeuristicCommitCount = "commit_count"
	HeuristicMinimalFix  = "minimal_fix"
)

// Codes is the full catalog, exactly 30 entries across four stages.
var Codes = []Code{
	// Stage 1 - implementation
	{"B-01", "Reads before modifying", "Inspects existing code before changing it", 1, "implementation", HeuristicKeyword},
	{"B-02", "Follows acceptance criteria", "Implements against the story's acceptance criteria", 1, "implementation", HeuristicKeyword},
	{"B-03", "Minimal fix", "Keeps the change surface small (at most two files)", 1, "implementation", HeuristicMinimalFix},

	// Stage 1 - testing
	{"B-04", "Covers edge cases", "Adds tests for boundary and error paths", 1, "testing", HeuristicKeyword},
	{"B-05", "Runs the full suite", "Runs the whole test suite, not just the new test", 1, "testing", HeuristicKeyword},
	{"B-06", "Asserts observable behavior", "Tests assert behavior rather than implementation detail", 1, "testing", HeuristicKeyword},
	{"B-07", "Tests before implementing", "Writes tests before writing the implementation", 1, "testing", HeuristicOrdering},

	// Stage 1 - refactoring
	{"B-08", "Preserves behavior", "Refactors without changing observable behavior", 1, "refactoring", HeuristicKeyword},
	{"B-09", "Commits incrementally", "Lands the change as a series of small commits", 1, "refactoring", HeuristicCommitCount},

	// Stage 1 - code_review
	{"B-10", "Cites specific lines", "Review comments reference concrete lines or hunks", 1, "code_review", HeuristicKeyword},
	{"B-11", "Checks style and lint", "Verifies formatting and lint cleanliness in review", 1, "code_review", HeuristicKeyword},

	// Stage 2 - recovery
	{"B-12", "Reproduces before fixing", "Reproduces the failure before attempting a fix", 2, "recovery", HeuristicOrdering},
	{"B-13", "Adds regression test", "Captures the failure in a regression test", 2, "recovery", HeuristicKeyword},
	{"B-14", "Tests before committing", "Runs tests before committing the fix", 2, "recovery", HeuristicOrdering},

	// Stage 2 - triage
	{"B-15", "Prioritizes by severity", "Orders incoming work by severity and impact", 2, "triage", HeuristicKeyword},
	{"B-16", "Isolates root cause", "Distinguishes root cause from symptoms", 2, "triage", HeuristicKeyword},

	// Stage 2 - elicitation
	{"B-17", "Asks clarifying questions", "Raises questions when requirements are ambiguous", 2, "elicitation", HeuristicKeyword},
	{"B-18", "Restates requirements", "Plays requirements back to confirm understanding", 2, "elicitation", HeuristicKeyword},

	// Stage 3 - scope_change
	{"B-19", "Renegotiates scope", "Surfaces scope changes instead of silently absorbing them", 3, "scope_change", HeuristicKeyword},
	{"B-20", "Updates estimates", "Re-estimates affected stories after a scope change", 3, "scope_change", HeuristicKeyword},

	// Stage 3 - compensation
	{"B-21", "Redistributes work", "Rebalances assignments when capacity drops", 3, "compensation", HeuristicKeyword},
	{"B-22", "Communicates blockers", "Flags blockers early instead of stalling silently", 3, "compensation", HeuristicKeyword},

	// Stage 3 - pairing
	{"B-23", "Rotates driver and navigator", "Swaps pairing roles during a session", 3, "pairing", HeuristicKeyword},
	{"B-24", "Narrates intent", "Explains intent aloud while driving", 3, "pairing", HeuristicKeyword},

	// Stage 4 - onboarding
	{"B-25", "Mentors the newcomer", "Pairs with and unblocks the onboarding agent", 4, "onboarding", HeuristicKeyword},
	{"B-26", "Documents setup", "Writes down setup and tribal knowledge for newcomers", 4, "onboarding", HeuristicKeyword},

	// Stage 4 - estimation
	{"B-27", "Splits oversized stories", "Breaks stories that exceed the point ceiling", 4, "estimation", HeuristicKeyword},

	// Stage 4 - meta_learning
	{"B-28", "Records learnings", "Captures retro insights as durable learnings", 4, "meta_learning", HeuristicKeyword},
	{"B-29", "Applies past learnings", "References earlier learnings when deciding", 4, "meta_learning", HeuristicKeyword},
	{"B-30", "Proposes process change", "Suggests a concrete process improvement", 4, "meta_learning", HeuristicKeyword},
}

var byCode = func() map[string]Code {
	m := make(map[string]Code, len(Codes))
	for _, c := range Codes {
		m[c.Code] = c
	}
	return m
}()

// Lookup returns the catalog record for a code string.
func Lookup(code string) (Code, bool) {
	c, ok := byCode[code]
	return c, ok
}

// CodesForCategory returns the codes whose category matches.
func CodesForCategory(category string) []Code {
	var out []Code
	for _, c := range Codes {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// keywordSets drives the keyword heuristic: a code is detected when any
// token appears (case-insensitive substring) in a decision's content or
// context.
var keywordSets = map[string][]string{
	"B-01": {"read the existing", "reading existing", "inspect", "understand the current", "reviewing the diff", "looked at the code"},
	"B-02": {"acceptance criteria", "acceptance-criteria", "per the story", "criteria"},
	"B-03": {"minimal fix", "small fix", "targeted change", "surgical"},
	"B-04": {"edge case", "boundary", "error path", "nil input", "empty input"},
	"B-05": {"full suite", "all tests", "test suite", "./..."},
	"B-06": {"observable behavior", "asserts behavior", "black box", "public api"},
	"B-08": {"behavior unchanged", "no functional change", "behavior-preserving", "pure refactor"},
	"B-10": {"line ", "specific line", "this hunk", "in the diff"},
	"B-11": {"lint", "style", "gofmt", "formatting"},
	"B-13": {"regression test", "regression", "failing test that reproduces"},
	"B-15": {"severity", "priority", "p0", "p1", "triage"},
	"B-16": {"root cause", "underlying cause", "symptom"},
	"B-17": {"clarify", "clarifying", "question", "ambiguous", "what should happen"},
	"B-18": {"to confirm", "restate", "my understanding", "so the requirement is"},
	"B-19": {"scope", "descope", "renegotiate", "out of scope"},
	"B-20": {"re-estimate", "reestimate", "updated estimate", "story points"},
	"B-21": {"redistribute", "rebalance", "reassign", "take over"},
	"B-22": {"blocked", "blocker", "waiting on", "stuck"},
	"B-23": {"rotate", "driver", "navigator", "switch roles"},
	"B-24": {"thinking aloud", "my intent", "narrat", "walking through"},
	"B-25": {"mentor", "onboard", "pairing with the new", "walk them through"},
	"B-26": {"document", "setup guide", "readme", "runbook"},
	"B-27": {"split the story", "split into", "too large", "break down"},
	"B-28": {"learning", "lesson", "insight", "retro note"},
	"B-29": {"last sprint we", "previously learned", "past learning", "as we learned"},
	"B-30": {"process change", "propose", "we should start", "we should stop"},
}

// orderingMarkers drives the ordering heuristic: the code is detected when a
// decision matching the first marker set precedes (or coincides with) one
// matching the second.
var orderingMarkers = map[string][2][]string{
	"B-07": {{"test"}, {"implement"}},
	"B-12": {{"reproduce"}, {"fix"}},
	"B-14": {{"test"}, {"commit"}},
}
