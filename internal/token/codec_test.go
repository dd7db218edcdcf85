package token

import (
	"regexp"
	"strconv"
	"testing"
)

func TestSignInCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := SignInCode()
		if len(code) != 6 {
			t.Fatalf("code length = %d, want 6 (%q)", len(code), code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range [100000, 999999]", n)
		}
	}
}

func TestOpaque(t *testing.T) {
	hexRe := regexp.MustCompile(`^[0-9a-f]{48}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := Opaque()
		if !hexRe.MatchString(tok) {
			t.Fatalf("token %q is not 48 lowercase hex chars", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestShortCodeFormat(t *testing.T) {
	codeRe := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{3}-[A-HJ-NP-Z2-9]{3}$`)

	for i := 0; i < 200; i++ {
		code := ShortCode()
		if !codeRe.MatchString(code) {
			t.Fatalf("code %q does not match XXX-XXX over the unambiguous alphabet", code)
		}
	}
}

func TestShortCodeExcludesAmbiguous(t *testing.T) {
	for _, c := range "01OI" {
		for i := 0; i < len(shortAlphabet); i++ {
			if rune(shortAlphabet[i]) == c {
				t.Errorf("alphabet contains ambiguous symbol %q", c)
			}
		}
	}
	if len(shortAlphabet) != 32 {
		t.Errorf("alphabet size = %d, want 32", len(shortAlphabet))
	}
}

func TestDigest(t *testing.T) {
	// SHA-256 of the empty string.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(""); got != want {
		t.Errorf("Digest(\"\") = %q, want %q", got, want)
	}

	if Digest("abc") == Digest("abd") {
		t.Error("distinct inputs produced the same digest")
	}
	if len(Digest("anything")) != 64 {
		t.Errorf("digest length = %d, want 64", len(Digest("anything")))
	}
}
