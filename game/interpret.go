package game

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Response types the model is instructed to emit.
const (
	TypeCasePresentation = "case_presentation"
	TypeSymptomUpdate    = "symptom_update"
	TypeTestResult       = "test_result"
	TypeHint             = "hint"
	TypeCorrectGuess     = "correct_guess"
	TypeGameOver         = "game_over"
)

// Symptom is one reported finding with its timing and severity.
type Symptom struct {
	Symptom  string `json:"symptom"`
	Timing   string `json:"timing"`
	Severity string `json:"severity"`
}

// GameData is the model-reported case state. Disease is the secret the
// player is trying to guess and must never reach clients mid-game.
type GameData struct {
	Age        int       `json:"age,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	BodySystem string    `json:"bodySystem,omitempty"`
	Disease    string    `json:"disease,omitempty"`
	Symptoms   []Symptom `json:"symptoms,omitempty"`
}

// Merge folds newer model-reported fields into the accumulated state,
// keeping existing values where the model left a field empty.
func (g *GameData) Merge(in *GameData) {
	if in == nil {
		return
	}
	if in.Age > 0 {
		g.Age = in.Age
	}
	if in.Gender != "" {
		g.Gender = in.Gender
	}
	if in.BodySystem != "" {
		g.BodySystem = in.BodySystem
	}
	if in.Disease != "" {
		g.Disease = in.Disease
	}
	if len(in.Symptoms) > 0 {
		g.Symptoms = in.Symptoms
	}
}

// Public returns the projection safe for clients: same case state with the
// secret disease stripped.
func (g *GameData) Public() *GameData {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Disease = ""
	return &cp
}

// RevealedDisease is populated only on terminal turns.
type RevealedDisease struct {
	MedicalTerm string   `json:"medicalTerm,omitempty"`
	CommonNames []string `json:"commonNames,omitempty"`
}

// TurnResponse is the player-facing part of a structured model reply.
// testResults is an opaque passthrough: single-value and multi-parameter
// layouts both occur and the backend never inspects them.
type TurnResponse struct {
	Message         string           `json:"message"`
	Type            string           `json:"type"`
	Finished        bool             `json:"finished"`
	TestResults     json.RawMessage  `json:"testResults,omitempty"`
	RevealedDisease *RevealedDisease `json:"revealedDisease,omitempty"`
}

// StructuredReply is the full JSON document the model is asked to emit.
type StructuredReply struct {
	GameData *GameData    `json:"gameData"`
	Response TurnResponse `json:"response"`
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the first JSON object carried by raw model output,
// accepting either a clean document or one wrapped in prose/markdown.
// Empty string means no usable JSON was found.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed
	}
	if m := jsonBlockRe.FindString(raw); m != "" && json.Valid([]byte(m)) {
		return m
	}
	return ""
}

// ParseReply interprets raw model output. ok=false means the output carried
// no usable structured reply and the caller must degrade instead of failing.
func ParseReply(raw string) (*StructuredReply, bool) {
	block := ExtractJSON(raw)
	if block == "" {
		return nil, false
	}
	var sr StructuredReply
	if err := json.Unmarshal([]byte(block), &sr); err != nil {
		return nil, false
	}
	if sr.Response.Message == "" && sr.Response.Type == "" {
		return nil, false
	}
	return &sr, true
}

// FallbackStart wraps unparseable output of an opening exchange into a
// non-terminal presentation turn carrying the raw text verbatim.
func FallbackStart(raw string) *StructuredReply {
	return &StructuredReply{
		GameData: &GameData{},
		Response: TurnResponse{Message: raw, Type: TypeCasePresentation},
	}
}

// FallbackContinue wraps unparseable mid-game output into a non-terminal
// hint turn so a flaky completion never ends a session.
func FallbackContinue(raw string) *StructuredReply {
	return &StructuredReply{
		Response: TurnResponse{Message: raw, Type: TypeHint},
	}
}

// Terminal reports whether a turn ends the game: the explicit flag or a
// terminal response type, whichever the model set.
func (r *TurnResponse) Terminal() bool {
	return r.Finished || r.Type == TypeCorrectGuess || r.Type == TypeGameOver
}
