package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/speaklab-io/speaklab/internal/audio"
	"github.com/speaklab-io/speaklab/internal/config"
	"github.com/speaklab-io/speaklab/internal/conversation"
	"github.com/speaklab-io/speaklab/internal/emailer"
	"github.com/speaklab-io/speaklab/internal/evaluation"
	"github.com/speaklab-io/speaklab/internal/report"
	"github.com/speaklab-io/speaklab/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const testQuestionsFile = `# warm-up
1. Could you introduce yourself?
2. What do you do for work or study?

---

- Describe a place you would love to visit.
- What is a skill you recently learned?
- Tell me about a book or film you enjoyed.
- How do you usually spend your weekends?
- What goal are you working toward right now?
- Describe a challenge you overcame.
`

type stubEngine struct{}

func (stubEngine) Complete(_ context.Context, system, _ string) (string, error) {
	if strings.Contains(system, "rater") {
		return "analytic stub", nil
	}
	return "examiner stub", nil
}

type testEnv struct {
	server   *httptest.Server
	sessions *session.Store
	reports  *report.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	questionsPath := filepath.Join(t.TempDir(), "questions.md")
	if err := os.WriteFile(questionsPath, []byte(testQuestionsFile), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewManager(&config.Config{
		SecretToken:     testSecret,
		DefaultStandard: "toefl",
		StoreFinished:   false,
	})

	sessions := session.NewStore()
	bank := conversation.NewBank(questionsPath, t.TempDir())
	planner := conversation.NewPlanner(bank, "toefl")
	evaluator := evaluation.NewDispatcher(sessions, stubEngine{})
	reports, err := report.NewRegistry(t.TempDir(), "http://reports.test")
	if err != nil {
		t.Fatal(err)
	}
	mailer := emailer.NewDispatcher(cfg)
	audioStore, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	h := NewHandler(cfg, sessions, planner, evaluator, reports, mailer, audioStore, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, sessions: sessions, reports: reports}
}

// post sends an authenticated JSON request and decodes the response into out.
func (e *testEnv) post(t *testing.T, path string, body, out interface{}) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Decode response from %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) startSession(t *testing.T) (string, string) {
	t.Helper()
	var started struct {
		SessionID string `json:"session_id"`
		Greeting  string `json:"assistant_greeting"`
	}
	status := e.post(t, "/api/session/start", map[string]interface{}{
		"mode":             "speaking",
		"duration_minutes": 10,
		"user_name":        "Ada",
		"consent":          map[string]interface{}{"granted": true},
	}, &started)
	if status != http.StatusOK {
		t.Fatalf("Session start failed with status %d", status)
	}
	return started.SessionID, started.Greeting
}

func (e *testEnv) chat(t *testing.T, sessionID, message string) string {
	t.Helper()
	var reply struct {
		AssistantMessage string `json:"assistant_message"`
	}
	status := e.post(t, "/api/chat", map[string]string{
		"session_id":   sessionID,
		"user_message": message,
	}, &reply)
	if status != http.StatusOK {
		t.Fatalf("Chat failed with status %d", status)
	}
	return reply.AssistantMessage
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	sessionID, greeting := env.startSession(t)
	sess, err := env.sessions.Get(sessionID)
	if err != nil {
		t.Fatalf("Created session not in store: %v", err)
	}

	plan := sess.Plan()
	if len(plan) != 5 {
		t.Fatalf("Expected a 5-question plan, got %d", len(plan))
	}
	if greeting != plan[0] {
		t.Errorf("Greeting %q is not the first planned question %q", greeting, plan[0])
	}

	// Four more exchanges walk through the remaining planned questions.
	for i := 1; i < 5; i++ {
		reply := env.chat(t, sessionID, fmt.Sprintf("answer number %d", i))
		if reply != plan[i] {
			t.Errorf("Turn %d: got %q, want planned question %q", i, reply, plan[i])
		}
	}

	// Once the plan is exhausted every further turn gets the closing message.
	closing := env.chat(t, sessionID, "final answer")
	for _, q := range plan {
		if closing == q {
			t.Fatalf("Closing message %q matches a planned question", closing)
		}
	}
	if again := env.chat(t, sessionID, "still here"); again != closing {
		t.Errorf("Closing message changed between turns: %q vs %q", closing, again)
	}

	var finished struct {
		Summary   string `json:"summary"`
		WordCount int    `json:"word_count"`
	}
	status := env.post(t, "/api/session/finish", map[string]string{"session_id": sessionID}, &finished)
	if status != http.StatusOK {
		t.Fatalf("Finish failed with status %d", status)
	}
	if finished.WordCount == 0 {
		t.Error("Expected a nonzero word count after six user turns")
	}
}

func TestStartSessionWithoutConsent(t *testing.T) {
	env := newTestEnv(t)
	status := env.post(t, "/api/session/start", map[string]interface{}{
		"mode":    "speaking",
		"consent": map[string]interface{}{"granted": false},
	}, nil)
	if status != http.StatusForbidden {
		t.Errorf("Expected 403 without consent, got %d", status)
	}
}

func TestChatUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	status := env.post(t, "/api/chat", map[string]string{
		"session_id":   "does-not-exist",
		"user_message": "hello",
	}, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", status)
	}
}

func TestChatWithoutConsent(t *testing.T) {
	env := newTestEnv(t)
	sess := env.sessions.Create(session.CreateParams{Mode: "speaking", ConsentGranted: false})

	status := env.post(t, "/api/chat", map[string]string{
		"session_id":   sess.ID,
		"user_message": "hello",
	}, nil)
	if status != http.StatusForbidden {
		t.Errorf("Expected 403 without consent, got %d", status)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/chat", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without bearer token, got %d", resp.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var result struct {
		Analytic string `json:"analytic_evaluation"`
		Examiner string `json:"examiner_evaluation"`
	}
	status := env.post(t, "/api/evaluate", map[string]interface{}{
		"transcript": []map[string]string{
			{"role": "assistant", "content": "Introduce yourself."},
			{"role": "user", "content": "I am a nurse from Izmir."},
		},
	}, &result)
	if status != http.StatusOK {
		t.Fatalf("Evaluate failed with status %d", status)
	}
	if result.Analytic != "analytic stub" || result.Examiner != "examiner stub" {
		t.Errorf("Unexpected evaluation payload: %+v", result)
	}
}

func TestEvaluateWithoutInput(t *testing.T) {
	env := newTestEnv(t)
	status := env.post(t, "/api/evaluate", map[string]string{}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 without transcript or session, got %d", status)
	}
}

func TestReportGenerateAndDownload(t *testing.T) {
	env := newTestEnv(t)

	var generated struct {
		ReportURL string  `json:"report_url"`
		PDFURL    *string `json:"pdf_url"`
		HTML      string  `json:"html"`
	}
	status := env.post(t, "/api/report", map[string]interface{}{
		"evaluation": map[string]string{
			"analytic_evaluation": "Overall: B2",
			"examiner_evaluation": "Solid performance.",
		},
		"session_metadata": map[string]string{"session_id": "s1", "user_name": "Ada"},
	}, &generated)
	if status != http.StatusOK {
		t.Fatalf("Report generation failed with status %d", status)
	}
	if generated.PDFURL != nil {
		t.Error("Expected pdf_url to be null")
	}
	if !strings.Contains(generated.HTML, "B2") {
		t.Error("Expected analytic content in report HTML")
	}

	// The emailed link works without credentials: the token is the capability.
	token := generated.ReportURL[strings.LastIndex(generated.ReportURL, "/")+1:]
	resp, err := http.Get(env.server.URL + "/api/reports/" + token)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for report download, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML content type, got %s", ct)
	}
}

func TestReportUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/reports/deadbeefdeadbeef")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown token, got %d", resp.StatusCode)
	}
}

func TestEmailWithoutProvider(t *testing.T) {
	env := newTestEnv(t)
	status := env.post(t, "/api/email", map[string]string{
		"to":      "a@example.com",
		"subject": "Your report",
		"body":    "See attached.",
	}, nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with no email provider, got %d", status)
	}
}

func TestAudioUpload(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := env.startSession(t)

	var uploaded struct {
		Filename    string `json:"filename"`
		StoredPath  string `json:"stored_path"`
		ContentType string `json:"content_type"`
	}
	status := env.post(t, "/api/session/audio", map[string]string{
		"session_id":   sessionID,
		"audio_base64": base64.StdEncoding.EncodeToString([]byte("fake mp3 bytes")),
	}, &uploaded)
	if status != http.StatusOK {
		t.Fatalf("Audio upload failed with status %d", status)
	}
	if uploaded.ContentType != "audio/mpeg" {
		t.Errorf("Unexpected content type %s", uploaded.ContentType)
	}
	if _, err := os.Stat(uploaded.StoredPath); err != nil {
		t.Errorf("Stored audio file missing: %v", err)
	}

	status = env.post(t, "/api/session/audio", map[string]string{
		"session_id":   sessionID,
		"audio_base64": "%%broken%%",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid audio payload, got %d", status)
	}
}

func TestEngineConfigEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var engineStatus struct {
		Configured bool `json:"configured"`
	}
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/config/engine", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Engine status failed with %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&engineStatus); err != nil {
		t.Fatal(err)
	}
	if engineStatus.Configured {
		t.Error("Engine must start unconfigured")
	}

	if status := env.post(t, "/api/config/engine", map[string]string{"api_key": "  "}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank engine key, got %d", status)
	}
}

func TestEmailConfigStatus(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/config/email", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Configured    bool     `json:"configured"`
		MissingFields []string `json:"missing_fields"`
		Diagnosis     string   `json:"diagnosis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Configured {
		t.Error("Email must start unconfigured")
	}
	if len(status.MissingFields) == 0 {
		t.Error("Expected missing fields to be listed")
	}
	if !strings.Contains(status.Diagnosis, "No email provider configured") {
		t.Errorf("Unexpected diagnosis: %q", status.Diagnosis)
	}

	if postStatus := env.post(t, "/api/config/email", map[string]string{}, nil); postStatus != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty email update, got %d", postStatus)
	}
}
