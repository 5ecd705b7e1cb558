package scenario

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"sprintgym/internal/logging"
)

// DefaultTargetSlot is the agent slot marked as training candidate when the
// caller does not pick one.
const DefaultTargetSlot = "backend_dev"

// disturbanceMenus maps episode types to the disturbance types they may
// enable. Types not listed fall back to flaky_test at high difficulty.
var disturbanceMenus = map[string][]string{
	"recovery":     {"prod_incident", "flaky_test"},
	"triage":       {"prod_incident", "conflicting_priorities"},
	"scope_change": {"scope_change"},
	"compensation": {"sick_day"},
}

// Catalog generates scenarios, optionally sampling from a loaded story pool
// instead of synthesizing stories.
type Catalog struct {
	storyPool []Story
}

// NewCatalog returns a catalog over the frozen episode-type set.
func NewCatalog() *Catalog { return &Catalog{} }

// LoadStoryPool replaces the story pool.
func (c *Catalog) LoadStoryPool(stories []Story) {
	c.storyPool = make([]Story, len(stories))
	copy(c.storyPool, stories)
	logging.Scenario("story pool loaded: %d stories", len(stories))
}

// LoadStoryPoolFile loads a YAML story pool from disk.
func (c *Catalog) LoadStoryPoolFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read story pool %s: %w", path, err)
	}
	var pool struct {
		Stories []Story `yaml:"stories"`
	}
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return fmt.Errorf("failed to parse story pool %s: %w", path, err)
	}
	c.LoadStoryPool(pool.Stories)
	return nil
}

// ListEpisodeTypes returns the sorted type names, filtered by stage when
// stage > 0.
func (c *Catalog) ListEpisodeTypes(stage int) []string {
	var names []string
	for name, def := range EpisodeTypes {
		if stage > 0 && def.Stage != stage {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate produces a deterministic ScenarioConfig for (type, difficulty,
// targetSlot, seed). Unknown types return an error enumerating the catalog.
func (c *Catalog) Generate(episodeType string, difficulty float64, targetSlot string, seed int64) (*Config, error) {
	def, ok := EpisodeTypes[episodeType]
	if !ok {
		return nil, fmt.Errorf("unknown episode type %q; available: %s",
			episodeType, strings.Join(c.ListEpisodeTypes(0), ", "))
	}
	if targetSlot == "" {
		targetSlot = DefaultTargetSlot
	}
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 1 {
		difficulty = 1
	}

	rng := rand.New(rand.NewSource(seed))

	cfg := &Config{
		EpisodeType:       episodeType,
		Stage:             def.Stage,
		Difficulty:        difficulty,
		TargetSlot:        targetSlot,
		Stories:           c.pickStories(episodeType, difficulty, rng),
		Disturbances:      c.pickDisturbances(episodeType, difficulty, rng),
		ExpectedBehaviors: append([]string(nil), def.TargetBehaviors...),
		DurationMinutes:   def.DurationMinutes,
		Phases:            append([]string(nil), def.Phases...),
		Seed:              seed,
		AgentOverrides: map[string]AgentOverride{
			targetSlot: {TrainingCandidate: true},
		},
	}

	logging.Scenario("generated %s scenario: difficulty=%.2f stories=%d disturbances=%v",
		episodeType, difficulty, len(cfg.Stories), cfg.Disturbances.Enabled)
	return cfg, nil
}

func (c *Catalog) pickStories(episodeType string, difficulty float64, rng *rand.Rand) []Story {
	count := int(1 + 3*difficulty)
	if count < 1 {
		count = 1
	}

	if len(c.storyPool) > 0 {
		// Sample without replacement from a shuffled copy.
		pool := make([]Story, len(c.storyPool))
		copy(pool, c.storyPool)
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		if count > len(pool) {
			count = len(pool)
		}
		return pool[:count]
	}

	prefix := storyPrefix(episodeType)
	points := int(2 + 6*difficulty)
	criteriaCount := 1 + int(3*difficulty)

	stories := make([]Story, 0, count)
	for i := 1; i <= count; i++ {
		criteria := make([]string, 0, criteriaCount)
		for j := 1; j <= criteriaCount; j++ {
			criteria = append(criteria, fmt.Sprintf("Criterion %d holds for %s story %d", j, episodeType, i))
		}
		stories = append(stories, Story{
			ID:                 fmt.Sprintf("EP-%s-%03d", prefix, i),
			Title:              fmt.Sprintf("%s story %d", titleCase(episodeType), i),
			Description:        fmt.Sprintf("Synthesized %s work item %d at difficulty %.2f.", episodeType, i, difficulty),
			StoryPoints:        points,
			AcceptanceCriteria: criteria,
		})
	}
	return stories
}

func (c *Catalog) pickDisturbances(episodeType string, difficulty float64, rng *rand.Rand) DisturbanceOverrides {
	if difficulty < 0.3 {
		return DisturbanceOverrides{Enabled: false}
	}

	types, ok := disturbanceMenus[episodeType]
	if !ok {
		if difficulty > 0.5 {
			types = []string{"flaky_test"}
		}
	}

	freqs := make(map[string]float64, len(types))
	for _, typ := range types {
		span := difficulty - 0.2
		if span < 0 {
			span = 0
		}
		freqs[typ] = 0.2 + rng.Float64()*span
	}
	return DisturbanceOverrides{Enabled: true, Frequencies: freqs}
}

// titleCase capitalizes each underscore-separated word.
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// storyPrefix derives the four-letter ID prefix from the type name.
func storyPrefix(episodeType string) string {
	clean := strings.ToUpper(strings.ReplaceAll(episodeType, "_", ""))
	if len(clean) > 4 {
		clean = clean[:4]
	}
	return clean
}

// GenerateCurriculum produces numEpisodes scenarios cycling through the
// stage's episode types with difficulty sampled uniformly in [0.2, 0.9].
func (c *Catalog) GenerateCurriculum(stage, numEpisodes int, seed int64) ([]*Config, error) {
	types := c.ListEpisodeTypes(stage)
	if len(types) == 0 {
		return nil, fmt.Errorf("no episode types for stage %d", stage)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]*Config, 0, numEpisodes)
	for i := 0; i < numEpisodes; i++ {
		typ := types[i%len(types)]
		difficulty := 0.2 + rng.Float64()*0.7
		cfg, err := c.Generate(typ, difficulty, DefaultTargetSlot, rng.Int63())
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}
