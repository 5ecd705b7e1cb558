// Package distributor assigns portfolio stories to teams. The heuristic
// path classifies each story and greedily picks the best-scoring team; an
// optional coordinator prompt + parser lets an LLM make the calls instead.
package distributor

import (
	"fmt"
	"sort"
	"strings"

	"sprintgym/internal/logging"
	"sprintgym/internal/scenario"
)

// TeamCapabilityProfile describes what one team is good at.
type TeamCapabilityProfile struct {
	TeamID          string         `json:"team_id"`
	TeamType        string         `json:"team_type"`
	Specializations map[string]int `json:"specializations"`
	Seniority       map[string]int `json:"seniority"`
	AgentCount      int            `json:"agent_count"`
	Brownfield      bool           `json:"brownfield"`
}

// StoryClassification is the inferred routing signal for one story.
type StoryClassification struct {
	Domain     string  `json:"domain"`
	TeamType   string  `json:"team_type"`
	Confidence float64 `json:"confidence"`
}

// Assignment binds a story to a team.
type Assignment struct {
	StoryID string  `json:"story_id"`
	TeamID  string  `json:"team_id"`
	Score   float64 `json:"score"`
}

// teamTypeKeywords routes stories to team types by text search.
var teamTypeKeywords = map[string][]string{
	"platform":       {"infrastructure", "pipeline", "deploy", "ci/cd", "build system", "platform"},
	"stream_aligned": {"feature", "user", "customer", "ui", "page", "endpoint"},
	"enabling":       {"tooling", "documentation", "enable", "training", "adoption"},
	"subsystem":      {"engine", "algorithm", "optimizer", "subsystem", "kernel"},
}

// specializationKeywords routes stories to specialist skills.
var specializationKeywords = map[string][]string{
	"backend":   {"api", "database", "endpoint", "server", "migration"},
	"frontend":  {"ui", "page", "component", "css", "render"},
	"testing":   {"test", "coverage", "regression", "flaky"},
	"databases": {"schema", "query", "index", "migration"},
	"security":  {"auth", "token", "encrypt", "vulnerability"},
}

// Classify infers a story's routing signal. Explicit hints win outright;
// tags and domains are trusted at half confidence or better; otherwise the
// title and description are keyword-searched.
func Classify(story scenario.Story) StoryClassification {
	if story.TeamTypeHint != "" {
		return StoryClassification{
			Domain:     story.Domain,
			TeamType:   story.TeamTypeHint,
			Confidence: 1.0,
		}
	}

	if story.Domain != "" || len(story.Tags) > 0 {
		c := StoryClassification{Domain: story.Domain, Confidence: 0.5}
		text := strings.ToLower(story.Domain + " " + strings.Join(story.Tags, " "))
		if tt, conf := keywordTeamType(text); tt != "" {
			c.TeamType = tt
			if conf > c.Confidence {
				c.Confidence = conf
			}
		}
		return c
	}

	text := strings.ToLower(story.Title + " " + story.Description)
	tt, conf := keywordTeamType(text)
	return StoryClassification{TeamType: tt, Confidence: conf}
}

// keywordTeamType returns the team type with the most keyword hits, with a
// confidence proportional to hit count.
func keywordTeamType(text string) (string, float64) {
	best, bestHits := "", 0
	for _, tt := range sortedKeys(teamTypeKeywords) {
		hits := 0
		for _, kw := range teamTypeKeywords[tt] {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = tt, hits
		}
	}
	if bestHits == 0 {
		return "", 0
	}
	conf := 0.3 + 0.1*float64(bestHits)
	if conf > 0.9 {
		conf = 0.9
	}
	return best, conf
}

// ScoreStoryForTeam rates the fit of one story for one team. assignedCount
// is how many stories the team already holds this round.
func ScoreStoryForTeam(story scenario.Story, team TeamCapabilityProfile, assignedCount int) float64 {
	c := Classify(story)
	score := 0.0

	if c.TeamType != "" && c.TeamType == team.TeamType {
		score += 10
		if team.Brownfield {
			score += 5
		}
	}

	// Stream-aligned teams are the catch-all for unlabeled or uncertain
	// stories.
	if team.TeamType == "stream_aligned" && (c.TeamType == "" || c.Confidence < 0.5) {
		score += 2
	}

	text := strings.ToLower(story.Title + " " + story.Description + " " + strings.Join(story.Tags, " "))
	specialist := 0.0
	for spec, count := range team.Specializations {
		if count == 0 {
			continue
		}
		for _, kw := range specializationKeywords[spec] {
			if strings.Contains(text, kw) {
				specialist += 3
				break
			}
		}
	}
	if specialist > 9 {
		specialist = 9
	}
	score += specialist

	score -= float64(assignedCount)
	return score
}

// HeuristicDistribute assigns every story to its best-scoring team,
// processing stories by ascending priority so urgent work picks first.
func HeuristicDistribute(stories []scenario.Story, teams []TeamCapabilityProfile) []Assignment {
	ordered := append([]scenario.Story(nil), stories...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	assigned := make(map[string]int, len(teams))
	var out []Assignment
	for _, story := range ordered {
		bestTeam, bestScore := "", 0.0
		for _, team := range teams {
			s := ScoreStoryForTeam(story, team, assigned[team.TeamID])
			if bestTeam == "" || s > bestScore {
				bestTeam, bestScore = team.TeamID, s
			}
		}
		if bestTeam == "" {
			continue
		}
		assigned[bestTeam]++
		out = append(out, Assignment{StoryID: story.ID, TeamID: bestTeam, Score: bestScore})
	}

	logging.Distributor("distributed %d stories across %d teams", len(out), len(teams))
	return out
}

// BuildCoordinatorPrompt renders the triage prompt for an LLM coordinator.
func BuildCoordinatorPrompt(stories []scenario.Story, teams []TeamCapabilityProfile) string {
	var b strings.Builder
	b.WriteString("You are the portfolio coordinator. Assign each story to the best team.\n\nTeams:\n")
	for _, t := range teams {
		specs := make([]string, 0, len(t.Specializations))
		for _, s := range sortedKeys(t.Specializations) {
			specs = append(specs, fmt.Sprintf("%s x%d", s, t.Specializations[s]))
		}
		b.WriteString(fmt.Sprintf("- %s (%s, %d agents): %s\n", t.TeamID, t.TeamType, t.AgentCount, strings.Join(specs, ", ")))
	}
	b.WriteString("\nStories:\n")
	for _, s := range stories {
		b.WriteString(fmt.Sprintf("- %s: %s. %s (priority %d)\n", s.ID, s.Title, s.Description, s.Priority))
	}
	b.WriteString("\nAnswer one line per story, exactly:\nASSIGN: <story_id> to <team_id> because <reason>\n")
	return b.String()
}

// ParseCoordinatorResponse extracts assignments from coordinator output.
// Malformed lines, unknown team ids, and unknown story ids are silently
// skipped.
func ParseCoordinatorResponse(response string, stories []scenario.Story, teams []TeamCapabilityProfile) []Assignment {
	knownStories := make(map[string]bool, len(stories))
	for _, s := range stories {
		knownStories[s.ID] = true
	}
	knownTeams := make(map[string]bool, len(teams))
	for _, t := range teams {
		knownTeams[t.TeamID] = true
	}

	var out []Assignment
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ASSIGN:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, "ASSIGN:"))
		toIdx := strings.Index(rest, " to ")
		if toIdx < 0 {
			continue
		}
		storyID := strings.TrimSpace(rest[:toIdx])
		rest = rest[toIdx+len(" to "):]
		teamID := rest
		if becauseIdx := strings.Index(rest, " because "); becauseIdx >= 0 {
			teamID = rest[:becauseIdx]
		}
		teamID = strings.TrimSpace(teamID)

		if !knownStories[storyID] || !knownTeams[teamID] {
			continue
		}
		out = append(out, Assignment{StoryID: storyID, TeamID: teamID})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
