package users

import "testing"

func TestChiefComplaint(t *testing.T) {
	data := []byte(`{"caseTitle":"Chest pain in a 54-year-old","steps":[{"data":{"chiefComplaint":"Crushing chest pain"}}]}`)
	if got := chiefComplaint(data); got != "Crushing chest pain" {
		t.Errorf("chiefComplaint = %q", got)
	}

	// Falls back to the title when no step carries a complaint.
	data = []byte(`{"caseTitle":"Chest pain in a 54-year-old","steps":[{"data":{}}]}`)
	if got := chiefComplaint(data); got != "Chest pain in a 54-year-old" {
		t.Errorf("chiefComplaint fallback = %q", got)
	}

	if got := chiefComplaint([]byte("not json")); got != "" {
		t.Errorf("chiefComplaint on garbage = %q", got)
	}
}
