package game

import (
	"encoding/json"
	"testing"
)

const sampleReply = `{
  "gameData": {
    "age": 61,
    "gender": "male",
    "bodySystem": "respiratory",
    "disease": "pneumonia",
    "symptoms": [{"symptom": "productive cough", "timing": "4 days", "severity": "moderate"}]
  },
  "response": {
    "message": "A 61-year-old male presents with...",
    "type": "case_presentation",
    "finished": false,
    "testResults": null,
    "revealedDisease": {}
  }
}`

func TestParseReplyStrict(t *testing.T) {
	sr, ok := ParseReply(sampleReply)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if sr.GameData.Disease != "pneumonia" || sr.GameData.Age != 61 {
		t.Errorf("unexpected gameData: %+v", sr.GameData)
	}
	if sr.Response.Type != TypeCasePresentation || sr.Response.Terminal() {
		t.Errorf("unexpected response: %+v", sr.Response)
	}
}

func TestParseReplyEmbedded(t *testing.T) {
	wrapped := "Here is the case:\n```json\n" + sampleReply + "\n```\nGood luck!"
	sr, ok := ParseReply(wrapped)
	if !ok {
		t.Fatal("expected embedded JSON to parse")
	}
	if sr.GameData.BodySystem != "respiratory" {
		t.Errorf("unexpected gameData: %+v", sr.GameData)
	}
}

func TestParseReplyGarbage(t *testing.T) {
	for _, raw := range []string{"", "plain prose, no json at all", "{broken json"} {
		if _, ok := ParseReply(raw); ok {
			t.Errorf("expected parse failure for %q", raw)
		}
	}
}

func TestFallbackTurns(t *testing.T) {
	raw := "The patient seems to have worsened overnight."
	start := FallbackStart(raw)
	if start.Response.Message != raw || start.Response.Type != TypeCasePresentation || start.Response.Terminal() {
		t.Errorf("unexpected start fallback: %+v", start.Response)
	}
	cont := FallbackContinue(raw)
	if cont.Response.Message != raw || cont.Response.Type != TypeHint || cont.Response.Terminal() {
		t.Errorf("unexpected continue fallback: %+v", cont.Response)
	}
}

func TestTerminal(t *testing.T) {
	cases := []struct {
		resp TurnResponse
		want bool
	}{
		{TurnResponse{Type: TypeHint}, false},
		{TurnResponse{Type: TypeCorrectGuess}, true},
		{TurnResponse{Type: TypeGameOver}, true},
		{TurnResponse{Type: TypeTestResult, Finished: true}, true},
	}
	for _, tc := range cases {
		if got := tc.resp.Terminal(); got != tc.want {
			t.Errorf("Terminal(%+v) = %v, want %v", tc.resp, got, tc.want)
		}
	}
}

func TestGameDataMerge(t *testing.T) {
	acc := &GameData{Age: 61, Gender: "male", BodySystem: "respiratory", Disease: "pneumonia"}
	acc.Merge(&GameData{Symptoms: []Symptom{{Symptom: "fever", Timing: "1 day", Severity: "mild"}}})
	if acc.Disease != "pneumonia" || acc.Age != 61 {
		t.Errorf("merge dropped existing fields: %+v", acc)
	}
	if len(acc.Symptoms) != 1 {
		t.Errorf("merge did not take new symptoms: %+v", acc)
	}
	acc.Merge(nil)
	if acc.Disease != "pneumonia" {
		t.Errorf("nil merge changed state: %+v", acc)
	}
}

func TestGameDataPublic(t *testing.T) {
	g := &GameData{Age: 30, Disease: "lupus"}
	pub := g.Public()
	if pub.Disease != "" || pub.Age != 30 {
		t.Errorf("unexpected public projection: %+v", pub)
	}
	if g.Disease != "lupus" {
		t.Error("Public must not mutate the original")
	}
	b, err := json.Marshal(pub)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, leaked := m["disease"]; leaked {
		t.Errorf("disease key leaked in %s", b)
	}
}

func TestTestResultsPassthrough(t *testing.T) {
	raw := `{"response":{"message":"CBC results:","type":"test_result","finished":false,
		"testResults":{"testName":"CBC","parameters":[{"parameter":"WBC","result":"15000","normalRange":"4000-11000","unit":"cells/uL"}]}}}`
	sr, ok := ParseReply(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	var tr struct {
		TestName   string `json:"testName"`
		Parameters []struct {
			Parameter string `json:"parameter"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(sr.Response.TestResults, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.TestName != "CBC" || len(tr.Parameters) != 1 {
		t.Errorf("unexpected testResults: %+v", tr)
	}
}
