package domain

import (
	"strings"
	"testing"
)

func TestFingerprint_DeterministicAndShort(t *testing.T) {
	url := "https://youtube.com/watch?v=someID"

	a := Fingerprint(url)
	b := Fingerprint(url)
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q vs %q", a, b)
	}
	if len(a) != 8 {
		t.Fatalf("fingerprint length: want 8, got %d (%q)", len(a), a)
	}
	for _, r := range a {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("fingerprint not lowercase hex: %q", a)
		}
	}
}

func TestFingerprint_SyntacticDedupOnly(t *testing.T) {
	// Une même ressource avec un paramètre de tracking en plus est un
	// épisode distinct: la dédup est syntaxique, pas sémantique.
	a := Fingerprint("https://youtube.com/watch?v=someID")
	b := Fingerprint("https://youtube.com/watch?v=someID&utm_source=x")
	if a == b {
		t.Fatalf("different URLs must produce different fingerprints")
	}
}

func TestTruncateDescription(t *testing.T) {
	short := strings.Repeat("a", DescriptionLimit)
	if got := TruncateDescription(short); got != short {
		t.Fatalf("description at the limit must not be modified")
	}

	long := strings.Repeat("b", 600)
	got := TruncateDescription(long)
	if len(got) != DescriptionLimit+3 {
		t.Fatalf("truncated length: want %d, got %d", DescriptionLimit+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated description must end with ellipsis marker, got %q", got[len(got)-5:])
	}
}

func TestTruncateDescription_CountsRunesNotBytes(t *testing.T) {
	long := strings.Repeat("é", 501)
	got := TruncateDescription(long)
	if runes := []rune(got); len(runes) != DescriptionLimit+3 {
		t.Fatalf("rune length: want %d, got %d", DescriptionLimit+3, len(runes))
	}
}

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`What? A "Great" Video: Part 1/2`, "What_ A _Great_ Video_ Part 1_2"},
		{"  spaced out  ", "spaced out"},
		{"plain title", "plain title"},
		{`a<b>c|d\e*f`, "a_b_c_d_e_f"},
	}
	for _, tc := range cases {
		if got := SanitizeTitle(tc.in); got != tc.want {
			t.Fatalf("SanitizeTitle(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSanitizeTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("x", 150)
	if got := SanitizeTitle(long); len(got) != 100 {
		t.Fatalf("capped length: want 100, got %d", len(got))
	}
}

func TestJobStateTransitions(t *testing.T) {
	cases := []struct {
		from, to JobState
		want     bool
	}{
		{JobQueued, JobRunning, true},
		{JobQueued, JobFailed, true},
		{JobQueued, JobCompleted, false},
		{JobRunning, JobCompleted, true},
		{JobRunning, JobFailed, true},
		{JobCompleted, JobRunning, false},
		{JobFailed, JobRunning, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s): want %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
