package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	t.Run("strips markup and collapses whitespace", func(t *testing.T) {
		got, ok := NormalizeQuery("  <b>wireless</b>   headphones\n")
		if !ok {
			t.Fatalf("expected query to be searchable")
		}
		if got != "wireless headphones" {
			t.Fatalf("expected %q got %q", "wireless headphones", got)
		}
	})

	t.Run("rejects blank input", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "<script>alert(1)</script>"} {
			if got, ok := NormalizeQuery(raw); ok {
				t.Fatalf("expected %q to be rejected, got %q", raw, got)
			}
		}
	})

	t.Run("folds full width characters", func(t *testing.T) {
		got, ok := NormalizeQuery("ＴＶ")
		if !ok || got != "TV" {
			t.Fatalf("expected TV got %q (ok=%v)", got, ok)
		}
	})
}

func TestTokens(t *testing.T) {
	got := Tokens("Back-to-School Backpack, BACKPACK & more")
	expected := []string{"back-to-school", "backpack", "more"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %#v got %#v", expected, got)
	}
}
