package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gtd-backend/genai"

	"github.com/gin-gonic/gin"
)

type mockAI struct {
	mu          sync.Mutex
	replies     []string
	calls       int
	err         error
	lastUser    string
	lastHistory int
}

func (m *mockAI) Send(_ context.Context, _ string, history []genai.Message, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.lastUser = user
	m.lastHistory = len(history)
	reply := m.replies[m.calls%len(m.replies)]
	m.calls++
	return reply, nil
}

func newTestRouter(ai Assistant) (*gin.Engine, *Handler, *MemoryStore) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(time.Hour)
	h := NewHandler(ai, store)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, h, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

const startReply = `{
  "gameData": {"age": 34, "gender": "female", "bodySystem": "endocrine", "disease": "diabetic_ketoacidosis",
    "symptoms": [{"symptom": "polyuria", "timing": "3 days", "severity": "moderate"}]},
  "response": {"message": "A 34-year-old female presents with...", "type": "case_presentation",
    "finished": false, "testResults": null, "revealedDisease": {}}
}`

const correctGuessReply = `{
  "gameData": {"age": 34, "gender": "female", "bodySystem": "endocrine", "disease": "diabetic_ketoacidosis", "symptoms": []},
  "response": {"message": "**DIAGNOSIS: Diabetic Ketoacidosis**", "type": "correct_guess", "finished": true,
    "testResults": null, "revealedDisease": {"medicalTerm": "Diabetic Ketoacidosis", "commonNames": ["DKA"]}}
}`

const hintReply = `{
  "gameData": {"age": 34, "gender": "female", "bodySystem": "endocrine", "disease": "diabetic_ketoacidosis", "symptoms": []},
  "response": {"message": "Not quite. Think metabolic.", "type": "hint", "finished": false,
    "testResults": null, "revealedDisease": {}}
}`

func TestStartGame(t *testing.T) {
	r, _, store := newTestRouter(&mockAI{replies: []string{startReply}})
	defer store.Close()

	w, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if out["sessionId"] == "" || out["sessionId"] == nil {
		t.Error("missing sessionId")
	}
	if out["responseType"] != TypeCasePresentation {
		t.Errorf("responseType = %v", out["responseType"])
	}
	if out["finished"] != false {
		t.Errorf("finished = %v", out["finished"])
	}
	gd, ok := out["gameData"].(map[string]any)
	if !ok {
		t.Fatalf("gameData missing: %v", out)
	}
	if _, leaked := gd["disease"]; leaked {
		t.Error("secret disease leaked in start response")
	}
	if gd["bodySystem"] != "endocrine" {
		t.Errorf("bodySystem = %v", gd["bodySystem"])
	}
}

func TestStartGameDegradesOnProse(t *testing.T) {
	raw := "A mysterious case awaits you today."
	r, _, store := newTestRouter(&mockAI{replies: []string{raw}})
	defer store.Close()

	w, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if out["reply"] != raw {
		t.Errorf("reply = %v, want raw text verbatim", out["reply"])
	}
	if out["responseType"] != TypeCasePresentation {
		t.Errorf("responseType = %v", out["responseType"])
	}
}

func TestStartGameModelFailure(t *testing.T) {
	r, _, store := newTestRouter(&mockAI{err: errors.New("upstream down")})
	defer store.Close()

	w, _ := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestContinueGameFullRound(t *testing.T) {
	ai := &mockAI{replies: []string{startReply, hintReply, correctGuessReply}}
	r, _, store := newTestRouter(ai)
	defer store.Close()

	_, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	sessionID := out["sessionId"].(string)

	// Wrong guess: hint, session stays alive, history grows.
	w, out := doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "heart failure"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if out["finished"] != false || out["responseType"] != TypeHint {
		t.Errorf("unexpected hint turn: %v", out)
	}
	if _, ok := out["revealedDisease"]; ok {
		t.Error("revealedDisease must not appear on non-terminal turns")
	}
	if gd := out["gameData"].(map[string]any); gd["disease"] != nil {
		t.Error("secret disease leaked mid-game")
	}

	// Correct guess: terminal turn with reveal, session evicted.
	w, out = doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "diabetic ketoacidosis"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if out["finished"] != true || out["responseType"] != TypeCorrectGuess {
		t.Errorf("unexpected terminal turn: %v", out)
	}
	rd, ok := out["revealedDisease"].(map[string]any)
	if !ok || rd["medicalTerm"] != "Diabetic Ketoacidosis" {
		t.Errorf("unexpected reveal: %v", out["revealedDisease"])
	}
	if ai.lastHistory == 0 {
		t.Error("continue turns must replay conversation history")
	}

	// The session is gone after the terminal turn.
	w, _ = doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "hello again"})
	if w.Code != http.StatusNotFound {
		t.Errorf("post-terminal status = %d, want 404", w.Code)
	}
}

func TestContinueGameValidation(t *testing.T) {
	ai := &mockAI{replies: []string{startReply, hintReply}}
	r, _, store := newTestRouter(ai)
	defer store.Close()

	_, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	sessionID := out["sessionId"].(string)

	// "DKA" is a registered synonym: the side-channel validator should
	// disagree with the model's hint verdict, without overriding it.
	_, out = doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "DKA"})
	gv, ok := out["guessValidation"].(map[string]any)
	if !ok {
		t.Fatalf("missing guessValidation: %v", out)
	}
	if gv["isCorrect"] != true {
		t.Errorf("validator verdict = %v, want true", gv["isCorrect"])
	}
	if out["responseType"] != TypeHint {
		t.Error("model verdict must stand even when the validator disagrees")
	}

	// A question is not screened as a guess.
	_, out = doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "Any fever?"})
	if _, ok := out["guessValidation"]; ok {
		t.Error("questions must not produce a validation record")
	}
}

func TestContinueGameBadRequests(t *testing.T) {
	r, _, store := newTestRouter(&mockAI{replies: []string{hintReply}})
	defer store.Close()

	w, _ := doJSON(t, r, http.MethodPost, "/api/game/some-session", gin.H{"message": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodPost, "/api/game/unknown-session", gin.H{"message": "pneumonia"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}
}

func TestContinueGameDegradesOnProse(t *testing.T) {
	raw := "Interesting thought, but consider the lab values again."
	ai := &mockAI{replies: []string{startReply, raw}}
	r, _, store := newTestRouter(ai)
	defer store.Close()

	_, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	sessionID := out["sessionId"].(string)

	w, out := doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "lupus"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if out["reply"] != raw || out["responseType"] != TypeHint || out["finished"] != false {
		t.Errorf("unexpected degraded turn: %v", out)
	}
}

func TestIsLikelyGuess(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"heart attack", true},
		{"Is it a heart attack?", false},
		{"run a blood test", false},
		{"any new symptoms", false},
		{"this is a very long message that rambles on about the patient history in detail", false},
	}
	for _, tc := range cases {
		if got := isLikelyGuess(tc.msg); got != tc.want {
			t.Errorf("isLikelyGuess(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestTestMatchingEndpoint(t *testing.T) {
	r, _, store := newTestRouter(&mockAI{replies: []string{startReply}})
	defer store.Close()

	w, out := doJSON(t, r, http.MethodPost, "/api/game/test-matching",
		gin.H{"guess": "Heart Attack", "disease": "myocardial_infarction"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	result := out["result"].(map[string]any)
	if result["isCorrect"] != true {
		t.Errorf("unexpected result: %v", out)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/game/test-matching", gin.H{"guess": "only one side"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConfigAndVarietyEndpoints(t *testing.T) {
	ai := &mockAI{replies: []string{startReply}}
	r, _, store := newTestRouter(ai)
	defer store.Close()

	doJSON(t, r, http.MethodPost, "/api/game/start", nil)

	w, out := doJSON(t, r, http.MethodGet, "/api/game/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if out["activeSessions"].(float64) != 1 {
		t.Errorf("activeSessions = %v", out["activeSessions"])
	}
	if out["synonymMapSize"].(float64) == 0 {
		t.Error("synonymMapSize should be non-zero")
	}

	w, out = doJSON(t, r, http.MethodGet, "/api/game/variety", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	stats := out["statistics"].(map[string]any)
	if stats["totalGames"].(float64) != 1 {
		t.Errorf("totalGames = %v", stats["totalGames"])
	}
}

func TestConcurrentTurnsSameSession(t *testing.T) {
	ai := &mockAI{replies: []string{startReply, hintReply}}
	r, _, store := newTestRouter(ai)
	defer store.Close()

	_, out := doJSON(t, r, http.MethodPost, "/api/game/start", nil)
	sessionID := out["sessionId"].(string)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doJSON(t, r, http.MethodPost, "/api/game/"+sessionID, gin.H{"message": "asthma"})
		}()
	}
	wg.Wait()

	sess, err := store.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatal(err)
	}
	// 2 start messages plus 2 per serialized turn.
	if want := 2 + 8*2; len(sess.History) != want {
		t.Errorf("history length = %d, want %d", len(sess.History), want)
	}
}
