package quota

import "testing"

func TestConsumeCountsDown(t *testing.T) {
	v := NewValidator()
	for i := 2; i >= 0; i-- {
		remaining, ok := v.consume(1, 3)
		if !ok || remaining != i {
			t.Fatalf("consume = (%d, %v), want (%d, true)", remaining, ok, i)
		}
	}
	if _, ok := v.consume(1, 3); ok {
		t.Error("consume beyond limit succeeded")
	}
}

func TestConsumePerUser(t *testing.T) {
	v := NewValidator()
	if _, ok := v.consume(1, 1); !ok {
		t.Fatal("first user denied")
	}
	if _, ok := v.consume(2, 1); !ok {
		t.Error("second user denied by first user's usage")
	}
}

func TestConsumeResetsOnDayChange(t *testing.T) {
	v := NewValidator()
	if _, ok := v.consume(1, 1); !ok {
		t.Fatal("initial consume denied")
	}
	v.day = "2000-01-01"
	if _, ok := v.consume(1, 1); !ok {
		t.Error("consume after day rollover denied")
	}
}

func TestTokenSummary(t *testing.T) {
	if got := tokenSummary("short"); got != "short" {
		t.Errorf("tokenSummary short = %q", got)
	}
	if got := tokenSummary("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("tokenSummary long = %q", got)
	}
}
