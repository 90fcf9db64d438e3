package quizzes

import "testing"

func TestResolveDepartment(t *testing.T) {
	cases := map[string]string{
		"tox":        "toxicology",
		"  Cardio  ": "cardiology",
		"OBGYN":      "obstetrics & gynecology (ob/gyn)",
		"neurology":  "neurology",
		"":           "",
	}
	for in, want := range cases {
		if got := resolveDepartment(in); got != want {
			t.Errorf("resolveDepartment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractJSONArray(t *testing.T) {
	raw := "Here are your questions:\n[{\"question\":\"Q\",\"options\":[\"a\",\"b\"],\"correctAnswerIndex\":1}]\nEnjoy!"
	got := extractJSONArray(raw)
	if got != `[{"question":"Q","options":["a","b"],"correctAnswerIndex":1}]` {
		t.Errorf("unexpected extraction: %q", got)
	}

	// Invalid candidates come back untouched.
	if got := extractJSONArray("[broken"); got != "[broken" {
		t.Errorf("unexpected passthrough: %q", got)
	}
}
