package game

import "testing"

func TestVarietyScoreEmpty(t *testing.T) {
	tr := &varietyTracker{}
	if got := tr.Stats().VarietyScore; got != 100 {
		t.Errorf("score with no games = %d, want 100", got)
	}
}

func TestVarietyTracking(t *testing.T) {
	tr := &varietyTracker{}
	tr.Track(&GameData{BodySystem: "cardiovascular", Age: 40, Gender: "male"})
	tr.Track(&GameData{BodySystem: "respiratory", Age: 62, Gender: "female"})
	tr.Track(&GameData{BodySystem: "cardiovascular", Age: 40, Gender: "male"})
	tr.Track(nil)

	stats := tr.Stats()
	if stats.TotalGames != 3 {
		t.Errorf("totalGames = %d, want 3", stats.TotalGames)
	}
	if stats.UniqueSystems != 2 || stats.UniqueAges != 2 || stats.UniqueGenders != 2 {
		t.Errorf("unexpected uniqueness counts: %+v", stats)
	}
	if stats.VarietyScore <= 0 || stats.VarietyScore > 100 {
		t.Errorf("score out of range: %d", stats.VarietyScore)
	}

	recent := tr.RecentSystems(2)
	if len(recent) != 2 || recent[1] != "cardiovascular" {
		t.Errorf("unexpected recent systems: %v", recent)
	}
}

func TestVarietyWindowCapped(t *testing.T) {
	tr := &varietyTracker{}
	for i := 0; i < 25; i++ {
		tr.Track(&GameData{BodySystem: "cardiovascular", Age: 20 + i, Gender: "male"})
	}
	stats := tr.Stats()
	if stats.TotalGames != 25 {
		t.Errorf("totalGames = %d, want 25", stats.TotalGames)
	}
	if stats.UniqueAges > varietyWindow {
		t.Errorf("tracked ages exceed window: %d", stats.UniqueAges)
	}
}

func TestSuggestedSystemsAvoidRecent(t *testing.T) {
	tr := &varietyTracker{}
	tr.Track(&GameData{BodySystem: "cardiovascular", Age: 30, Gender: "male"})
	tr.Track(&GameData{BodySystem: "respiratory", Age: 45, Gender: "female"})

	for _, s := range tr.suggestedSystems(5) {
		if s == "cardiovascular" || s == "respiratory" {
			t.Errorf("suggested recently used system %q", s)
		}
	}
}
