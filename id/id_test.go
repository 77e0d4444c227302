package id_test

import (
	"testing"
	"time"

	"github.com/loomworks/loom/id"
)

func TestClassID_RoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := id.NewClassID("reminder", created)

	s := c.String()
	parsed, err := id.ParseClassID(s)
	if err != nil {
		t.Fatalf("ParseClassID(%q): %v", s, err)
	}
	if parsed != c {
		t.Errorf("parsed = %+v, want %+v", parsed, c)
	}
}

func TestClassID_NameWithHyphens(t *testing.T) {
	c := id.NewClassID("log-rotator-daily", time.Now())
	parsed, err := id.ParseClassID(c.String())
	if err != nil {
		t.Fatalf("ParseClassID: %v", err)
	}
	if parsed.Name != "log-rotator-daily" {
		t.Errorf("Name = %q, want %q", parsed.Name, "log-rotator-daily")
	}
}

func TestParseClassID_Invalid(t *testing.T) {
	for _, s := range []string{"", "noseparator", "-123", "name-", "name-abc"} {
		if _, err := id.ParseClassID(s); err == nil {
			t.Errorf("ParseClassID(%q): expected error", s)
		}
	}
}

func TestJobID_RoundTrip(t *testing.T) {
	class := id.NewClassID("sweeper", time.Now())
	j := id.NewJobID(class, time.Now())

	parsed, err := id.ParseJobID(j.String())
	if err != nil {
		t.Fatalf("ParseJobID(%q): %v", j.String(), err)
	}
	if parsed != j {
		t.Errorf("parsed = %+v, want %+v", parsed, j)
	}
}

func TestJobID_UniquePerInstance(t *testing.T) {
	class := id.NewClassID("sweeper", time.Now())
	now := time.Now()

	a := id.NewJobID(class, now)
	b := id.NewJobID(class, now)
	if a == b {
		t.Fatalf("two instances created at the same time share an id: %s", a)
	}
}

func TestParseJobID_Invalid(t *testing.T) {
	for _, s := range []string{"", "a-b", "a-1-2", "-1-2-3", "a-x-y-z"} {
		if _, err := id.ParseJobID(s); err == nil {
			t.Errorf("ParseJobID(%q): expected error", s)
		}
	}
}

func TestClassUUID_RoundTrip(t *testing.T) {
	u := id.NewClassUUID()
	if u.IsZero() {
		t.Fatal("NewClassUUID returned zero value")
	}

	parsed, err := id.ParseClassUUID(u.String())
	if err != nil {
		t.Fatalf("ParseClassUUID: %v", err)
	}
	if parsed != u {
		t.Errorf("parsed = %s, want %s", parsed, u)
	}
}
