// Package conversation drives the question sequencing for assessment sessions.
package conversation

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// questionsPerSession is the length of a full question plan.
const questionsPerSession = 5

// fallbackQuestions is used whenever the question source is missing,
// unreadable, or yields fewer than five usable entries.
var fallbackQuestions = []string{
	"Please introduce yourself in English.",
	"What are your current study or career goals?",
	"Tell me about a time you solved a challenge at work or school.",
	"How do you prepare for important presentations or exams?",
	"What skills are you focused on improving this year?",
}

var (
	listMarkerRe = regexp.MustCompile(`^[-*+]\s+`)
	numberingRe  = regexp.MustCompile(`^\d+[.)]\s+`)
)

// Bank loads and memoizes the question pool per assessment standard. Pools
// are populated once and treated as immutable afterwards; loading never
// fails, it falls back to the built-in list instead.
type Bank struct {
	questionsPath string
	configRoot    string

	mu    sync.Mutex
	pools map[string][]string
}

// NewBank creates a question bank reading from the given questions file and
// per-standard config root.
func NewBank(questionsPath, configRoot string) *Bank {
	return &Bank{
		questionsPath: questionsPath,
		configRoot:    configRoot,
		pools:         make(map[string][]string),
	}
}

// Pool returns the ordered question pool for a standard. The first two
// entries are the fixed openers; the rest form the random pool.
func (b *Bank) Pool(standardID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pool, ok := b.pools[standardID]; ok {
		return pool
	}
	pool := b.loadQuestions()
	b.pools[standardID] = pool
	return pool
}

func (b *Bank) loadQuestions() []string {
	data, err := os.ReadFile(b.questionsPath)
	if err != nil {
		slog.Warn("Question source unavailable, using fallback questions", "path", b.questionsPath, "error", err)
		return fallbackQuestions
	}

	var questions []string
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}
		line = listMarkerRe.ReplaceAllString(line, "")
		line = numberingRe.ReplaceAllString(line, "")
		if line = strings.TrimSpace(line); line != "" {
			questions = append(questions, line)
		}
	}

	if len(questions) < questionsPerSession {
		slog.Warn("Question source too short, using fallback questions", "path", b.questionsPath, "count", len(questions))
		return fallbackQuestions
	}
	return questions
}

// StandardConfig returns the tone/metadata config for a standard. Lookup is
// best-effort: a missing or invalid config file yields (nil, false) and must
// never block prompt selection.
func (b *Bank) StandardConfig(standardID string) (map[string]any, bool) {
	path := filepath.Join(b.configRoot, standardID, "v1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("Invalid standard config, ignoring", "standard", standardID, "path", path, "error", err)
		return nil, false
	}
	return cfg, true
}
