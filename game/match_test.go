package game

import "testing"

func TestIsGuessCorrect(t *testing.T) {
	cases := []struct {
		guess   string
		disease string
		want    bool
	}{
		{"Heart Attack", "myocardial_infarction", true},
		{"MI", "myocardial_infarction", true},
		{"a heart attack", "myocardial_infarction", true},
		{"myocardial infarction", "myocardial_infarction", true},
		{"chest pain", "myocardial_infarction", false},
		{"heart failure", "myocardial_infarction", false},
		{"stroke", "cerebrovascular_accident", true},
		{"kidney stones", "nephrolithiasis", true},
		{"COPD", "chronic_obstructive_pulmonary_disease", true},
		{"cancer", "pneumonia", false},
		{"", "pneumonia", false},
		{"pneumonia", "", false},
	}
	for _, tc := range cases {
		if got := IsGuessCorrect(tc.guess, tc.disease); got != tc.want {
			t.Errorf("IsGuessCorrect(%q, %q) = %v, want %v", tc.guess, tc.disease, got, tc.want)
		}
	}
}

func TestIsGuessCorrectPunctuatedForms(t *testing.T) {
	cases := []struct {
		guess   string
		disease string
	}{
		{"alzheimer's", "dementia"},
		{"alzheimer's disease", "dementia"},
		{"parkinson's", "parkinson_disease"},
		{"parkinson's disease", "parkinson_disease"},
		{"non-hodgkin lymphoma", "lymphoma"},
		{"a-fib", "atrial_fibrillation"},
	}
	for _, tc := range cases {
		if !IsGuessCorrect(tc.guess, tc.disease) {
			t.Errorf("IsGuessCorrect(%q, %q) = false, want true", tc.guess, tc.disease)
		}
	}
}

func TestEveryRegisteredSurfaceFormMatches(t *testing.T) {
	// Every surface form in the table must match its own disease when
	// typed verbatim as a guess.
	for canonical, forms := range diseaseGroups {
		for _, f := range forms {
			if !IsGuessCorrect(f, canonical) {
				t.Errorf("IsGuessCorrect(%q, %q) = false, want true", f, canonical)
			}
		}
	}
}

func TestIsGuessCorrectUnlistedDisease(t *testing.T) {
	// A disease outside the synonym table still matches its spaced slug.
	if !IsGuessCorrect("boerhaave syndrome", "boerhaave_syndrome") {
		t.Error("direct spaced-slug match should succeed for unlisted diseases")
	}
	// But a registered synonym of another disease must not match it.
	if IsGuessCorrect("heart attack", "boerhaave_syndrome") {
		t.Error("synonym of a different disease must not match an unlisted disease")
	}
}

func TestResolveCanonical(t *testing.T) {
	if c, ok := ResolveCanonical("heart attack"); !ok || c != "myocardial_infarction" {
		t.Errorf("ResolveCanonical(heart attack) = %q, %v", c, ok)
	}
	if _, ok := ResolveCanonical("totally unknown"); ok {
		t.Error("unknown surface form should not resolve")
	}
	// Lookups are exact: partial forms do not resolve.
	if _, ok := ResolveCanonical("heart"); ok {
		t.Error("partial surface form should not resolve")
	}
}

func TestSynonymsFor(t *testing.T) {
	syns := SynonymsFor("cerebrovascular_accident")
	if len(syns) == 0 {
		t.Fatal("expected synonyms for cerebrovascular_accident")
	}
	found := false
	for _, s := range syns {
		if s == "stroke" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected stroke in %v", syns)
	}
}
