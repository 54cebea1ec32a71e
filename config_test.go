package main

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("parse with no arguments failed: %v", err)
	}
	if opts.Port != DefaultPort || opts.TurningSpeed != DefaultTurningSpeed ||
		opts.RoundsPerSec != DefaultRoundsPerSec || opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Fatalf("defaults = %+v", opts)
	}
}

func TestFlagParsing(t *testing.T) {
	opts, err := parseOptions([]string{"-p", "3000", "-s", "7", "-t", "30", "-v", "25", "-w", "100", "-h", "200"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := Options{Port: 3000, Seed: 7, TurningSpeed: 30, RoundsPerSec: 25, Width: 100, Height: 200}
	if opts != want {
		t.Fatalf("options = %+v, want %+v", opts, want)
	}
}

func TestInvalidInvocation(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":       {"-z", "1"},
		"port zero":          {"-p", "0"},
		"port too large":     {"-p", "70000"},
		"non-numeric value":  {"-w", "abc"},
		"positional garbage": {"extra"},
		"zero rounds":        {"-v", "0"},
	}
	for label, args := range cases {
		if _, err := parseOptions(args); err == nil {
			t.Errorf("%s: parse of %v succeeded, want error", label, args)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORMS_PORT", "4000")
	t.Setenv("WORMS_WIDTH", "320")

	opts, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.Port != 4000 || opts.Width != 320 {
		t.Fatalf("options = %+v, want env port 4000 width 320", opts)
	}

	// explicit flags beat the environment
	opts, err = parseOptions([]string{"-p", "5000"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.Port != 5000 {
		t.Fatalf("port = %d, want flag value 5000", opts.Port)
	}
}

func TestMalformedEnvRejected(t *testing.T) {
	t.Setenv("WORMS_PORT", "not-a-number")
	if _, err := parseOptions(nil); err == nil {
		t.Fatal("malformed environment value must be an invalid invocation")
	}
}

func TestTurnDuration(t *testing.T) {
	if d := (Options{RoundsPerSec: 50}).TurnDuration(); d != 20*time.Millisecond {
		t.Fatalf("duration at 50/sec = %v, want 20ms", d)
	}
	// 1000/3 truncates to whole milliseconds
	if d := (Options{RoundsPerSec: 3}).TurnDuration(); d != 333*time.Millisecond {
		t.Fatalf("duration at 3/sec = %v, want 333ms", d)
	}
}
