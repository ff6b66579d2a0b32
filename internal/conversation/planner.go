package conversation

import (
	"math/rand/v2"
	"strings"

	"github.com/speaklab-io/speaklab/internal/domain"
)

const (
	fixedQuestionCount  = 2
	randomQuestionCount = 3
)

// defaultClosingMessage is returned once the question plan is exhausted. It
// is repeated verbatim on every call past completion so clients can treat it
// as an idempotent end-of-conversation signal.
const defaultClosingMessage = "Konuşma pratiğini tamamladığınız için teşekkürler. " +
	"Ekranın sol üstünde yer alan \"Oturumu Sonlandır\" tuşuna basabilir ve  raporunuzun paylaşılmasını sağlayabilirsiniz."

// PlanState is the slice of session state the planner needs: the cached
// question plan and the assigned standard. Both are set once per session.
type PlanState interface {
	Plan() []string
	SetPlan([]string)
	Standard() string
	SetStandard(string)
}

// Planner selects the per-session question plan and serves the next prompt
// for a conversation history.
type Planner struct {
	bank            *Bank
	defaultStandard string
}

// NewPlanner creates a planner over the given bank. defaultStandard is used
// for sessions with no standard assigned yet.
func NewPlanner(bank *Bank, defaultStandard string) *Planner {
	return &Planner{bank: bank, defaultStandard: defaultStandard}
}

// SelectQuestions picks a plan from the pool: the first two entries are
// always taken in original order, then three more are drawn without
// replacement from the remainder. A pool of five or fewer is returned as-is.
func (p *Planner) SelectQuestions(pool []string) []string {
	if len(pool) <= questionsPerSession {
		out := make([]string, len(pool))
		copy(out, pool)
		return out
	}

	plan := make([]string, 0, questionsPerSession)
	plan = append(plan, pool[:fixedQuestionCount]...)

	tail := pool[fixedQuestionCount:]
	n := randomQuestionCount
	if len(tail) < n {
		n = len(tail)
	}
	for _, i := range rand.Perm(len(tail))[:n] {
		plan = append(plan, tail[i])
	}
	return plan
}

// NextPrompt returns the assistant's next utterance for the given history.
// The plan is computed at most once per session and cached on it; after the
// plan is exhausted the closing message is returned on every call.
func (p *Planner) NextPrompt(history []domain.ChatMessage, sess PlanState) string {
	standard := p.defaultStandard
	if sess != nil {
		if assigned := sess.Standard(); assigned != "" {
			standard = assigned
		}
	}
	standard = strings.ToLower(standard)
	if sess != nil && sess.Standard() == "" {
		sess.SetStandard(standard)
	}

	pool := p.bank.Pool(standard)

	var questions []string
	if sess != nil {
		if len(sess.Plan()) == 0 {
			sess.SetPlan(p.SelectQuestions(pool))
		}
		questions = sess.Plan()
	} else {
		questions = p.SelectQuestions(pool)
	}

	assistantTurns := 0
	for _, m := range history {
		if m.Role == domain.RoleAssistant {
			assistantTurns++
		}
	}

	if assistantTurns < questionsPerSession && assistantTurns < len(questions) {
		return questions[assistantTurns]
	}
	return p.closingMessage(standard)
}

// closingMessage allows a standard config to override the closing line; the
// lookup is best-effort and the built-in message is the default.
func (p *Planner) closingMessage(standard string) string {
	if cfg, ok := p.bank.StandardConfig(standard); ok {
		if v, ok := cfg["closing_message"].(string); ok && v != "" {
			return v
		}
	}
	return defaultClosingMessage
}
