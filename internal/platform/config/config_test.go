package config

import (
	"testing"
	"time"

	"issuemirror/internal/platform/testkit"
)

func TestPrefixComposes(t *testing.T) {
	t.Setenv("MIRROR_SYNC_WORKERS", "4")

	root := New()
	if got := root.Prefix("MIRROR_").Prefix("SYNC_").MayInt("WORKERS", 1); got != 4 {
		t.Fatalf("nested prefix got %d want 4", got)
	}
}

func TestMustStringPanicsWhenMissing(t *testing.T) {
	t.Setenv("CFG_PRESENT", "yes")

	c := New().Prefix("CFG_")
	if got := c.MustString("PRESENT"); got != "yes" {
		t.Fatalf("got %q", got)
	}
	testkit.MustPanic(t, func() { _ = c.MustString("ABSENT") })
}

func TestMayIntFallsBack(t *testing.T) {
	t.Setenv("CFG_GOOD", "12")
	t.Setenv("CFG_BAD", "twelve")

	c := New().Prefix("CFG_")
	if got := c.MayInt("GOOD", 1); got != 12 {
		t.Fatalf("got %d", got)
	}
	if got := c.MayInt("BAD", 7); got != 7 {
		t.Fatalf("invalid value must fall back, got %d", got)
	}
	if got := c.MayInt("MISSING", 9); got != 9 {
		t.Fatalf("missing value must fall back, got %d", got)
	}
}

func TestMayDuration(t *testing.T) {
	t.Setenv("CFG_D", "90s")
	t.Setenv("CFG_BAD", "soon")

	c := New().Prefix("CFG_")
	if got := c.MayDuration("D", time.Minute); got != 90*time.Second {
		t.Fatalf("got %v", got)
	}
	if got := c.MayDuration("BAD", time.Minute); got != time.Minute {
		t.Fatalf("invalid duration must fall back, got %v", got)
	}
}

func TestMayBoolAndCSV(t *testing.T) {
	t.Setenv("CFG_B", "true")
	t.Setenv("CFG_LIST", "a, b,,c ")

	c := New().Prefix("CFG_")
	if !c.MayBool("B", false) {
		t.Fatal("want true")
	}
	if c.MayBool("MISSING", false) {
		t.Fatal("want default false")
	}
	got := c.MayCSV("LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("csv=%v", got)
	}
}
