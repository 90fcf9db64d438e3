package game

import "testing"

func TestNormalizeGuess(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  The Heart Attack!! ", "heart attack"},
		{"An   inflamed appendix", "inflamed appendix"},
		{"a stroke", "stroke"},
		{"GERD?", "gerd"},
		{"kidney-stones", "kidneystones"},
		{"  multiple    sclerosis  ", "multiple sclerosis"},
		{"", ""},
		{"a", "a"},
		{"the", "the"},
	}
	for _, tc := range cases {
		if got := NormalizeGuess(tc.in); got != tc.want {
			t.Errorf("NormalizeGuess(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeGuessIdempotent(t *testing.T) {
	inputs := []string{
		"  The Heart Attack!! ",
		"An Irregular Heart-Beat",
		"type 2 diabetes",
		"C.O.P.D.",
	}
	for _, in := range inputs {
		once := NormalizeGuess(in)
		if twice := NormalizeGuess(once); twice != once {
			t.Errorf("NormalizeGuess not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
