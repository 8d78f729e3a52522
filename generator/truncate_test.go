package generator

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"under limit unchanged", "hello world", 20, "hello world"},
		{"exact limit unchanged", "abcde", 5, "abcde"},
		{"collapses runs of spaces", "hello    world", 50, "hello world"},
		{"collapses newlines and tabs", "hello\n\nworld\tagain", 50, "hello world again"},
		{"trims edges", "  padded  ", 50, "padded"},
		{"cut ends with ellipsis", "abcdefghij", 5, "abcd…"},
		{"floor of one keeps one rune", "abcdef", 0, "…"},
		{"empty stays empty", "", 10, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Truncate(tc.in, tc.n); got != tc.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
			}
		})
	}
}

func TestTruncateCutIsExactRuneLength(t *testing.T) {
	in := strings.Repeat("a", 130)
	got := Truncate(in, 120)
	if n := utf8.RuneCountInString(got); n != 120 {
		t.Fatalf("rune length = %d, want 120", n)
	}
	if want := strings.Repeat("a", 119) + Ellipsis; got != want {
		t.Fatalf("got %q, want 119 chars plus ellipsis", got)
	}
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	in := strings.Repeat("é", 10)
	got := Truncate(in, 5)
	if got != strings.Repeat("é", 4)+Ellipsis {
		t.Fatalf("got %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 5 {
		t.Fatalf("rune length = %d, want 5", n)
	}
}

func TestTruncateToLimit(t *testing.T) {
	multiline := "line one\nline two"
	if got := TruncateToLimit(multiline, 280); got != multiline {
		t.Fatalf("within limit should be unchanged, got %q", got)
	}

	in := strings.Repeat("x", 300)
	got := TruncateToLimit(in, 280)
	if n := utf8.RuneCountInString(got); n != 280 {
		t.Fatalf("rune length = %d, want 280", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected three-dot suffix, got %q", got[len(got)-5:])
	}
	if got[:277] != in[:277] {
		t.Fatal("prefix should be the original text")
	}

	if got := TruncateToLimit("anything", 0); got != "anything" {
		t.Fatalf("limit 0 means no limit, got %q", got)
	}
}

func TestFlattenLine(t *testing.T) {
	if got := flattenLine("a\nb\r\nc"); got != "a / b / c" {
		t.Fatalf("got %q", got)
	}
	if got := flattenLine("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
