package weeks

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-01", "2024-01-01"}, // Monday
		{"2024-01-03", "2024-01-01"},
		{"2024-01-07", "2024-01-01"}, // Sunday
		{"2024-01-08", "2024-01-08"},
		{"2024-03-01", "2024-02-26"}, // crosses month
	}
	for _, tt := range tests {
		if got := Start(day(tt.in)); got != tt.want {
			t.Errorf("Start(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestEnd(t *testing.T) {
	for _, in := range []string{"2024-01-01", "2024-01-04", "2024-01-07"} {
		if got := End(day(in)); got != "2024-01-07" {
			t.Errorf("End(%s) = %q", in, got)
		}
	}
	if got := End(day("2024-02-28")); got != "2024-03-03" {
		t.Errorf("End across month = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-01-04T10:00:00Z", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format(DateLayout) != "2024-01-04" {
		t.Fatalf("got %s", got)
	}
	if _, err := ParseDate("not a date", time.UTC); err == nil {
		t.Fatal("expected error")
	}
}

func TestWindowAdmits(t *testing.T) {
	wednesday := day("2024-01-17")
	monday := day("2024-01-15")
	yes, no := true, false

	tests := []struct {
		name     string
		now      time.Time
		override *bool
		week     string
		want     bool
	}{
		{"current week excluded", wednesday, nil, "2024-01-15", false},
		{"future week excluded", wednesday, nil, "2024-01-22", false},
		{"last week included midweek", wednesday, nil, "2024-01-08", true},
		{"older week included", wednesday, nil, "2024-01-01", true},
		{"last week excluded on monday", monday, nil, "2024-01-08", false},
		{"older week included on monday", monday, nil, "2024-01-01", true},
		{"override includes on monday", monday, &yes, "2024-01-08", true},
		{"override excludes midweek", wednesday, &no, "2024-01-08", false},
		{"override never admits current week", wednesday, &yes, "2024-01-15", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.now, tt.override)
			if got := w.Admits(day(tt.week)); got != tt.want {
				t.Fatalf("Admits(%s) = %v, want %v", tt.week, got, tt.want)
			}
		})
	}
}

func TestWindowRecordableIgnoresOverride(t *testing.T) {
	yes := true
	w := NewWindow(day("2024-01-15"), &yes) // Monday
	if !w.Admits(day("2024-01-08")) {
		t.Fatal("override should admit last week")
	}
	if w.RecordableStart("2024-01-08") {
		t.Fatal("last week must not be recordable on a Monday")
	}
	if !w.RecordableStart("2024-01-01") {
		t.Fatal("older week should be recordable")
	}
	if w.RecordableStart("2024-01-15") {
		t.Fatal("current week must not be recordable")
	}
	if w.RecordableStart("garbage") {
		t.Fatal("invalid week start must not be recordable")
	}
}
