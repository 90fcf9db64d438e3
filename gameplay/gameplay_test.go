package gameplay

import (
	"reflect"
	"testing"
)

func TestPointsRecompute(t *testing.T) {
	p := Points{Diagnosis: 50, Tests: 20, Treatment: 30, Penalties: 10}
	p.Recompute()
	if p.Total != 90 {
		t.Errorf("total = %d, want 90", p.Total)
	}

	p = Points{Penalties: 5}
	p.Recompute()
	if p.Total != -5 {
		t.Errorf("total = %d, want -5", p.Total)
	}
}

func TestAppendUnique(t *testing.T) {
	got := appendUnique([]int{1, 2}, []int{2, 3, 3, 1, 4})
	want := []int{1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("appendUnique = %v, want %v", got, want)
	}

	if got := appendUnique(nil, nil); len(got) != 0 {
		t.Errorf("appendUnique(nil, nil) = %v", got)
	}
}
