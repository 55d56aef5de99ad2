package lines

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
)

func collectLines(t *testing.T, input string) []string {
	t.Helper()
	got := []string{}
	if err := Each(strings.NewReader(input), func(line string) {
		got = append(got, line)
	}); err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
	return got
}

func TestEach(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "Empty", input: "", want: []string{}},
		{name: "LineFeed", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "CRLF", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "BareCR", input: "a\rb\r", want: []string{"a", "b"}},
		{name: "MixedTerminators", input: "a\rb\r\nc\nd", want: []string{"a", "b", "c", "d"}},
		{name: "UnterminatedLastLine", input: "a\nb", want: []string{"a", "b"}},
		{name: "BlankLinesKept", input: "\n\r\n\r", want: []string{"", "", ""}},
		{name: "CRBeforeCRLF", input: "a\r\r\n", want: []string{"a", ""}},
		{name: "OtherWhitespaceKept", input: " a \t\n", want: []string{" a \t"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, collectLines(t, tc.input)); diff != "" {
				t.Fatalf("unexpected lines (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEachCRLFAcrossReads(t *testing.T) {
	got := []string{}
	r := iotest.OneByteReader(strings.NewReader("a\r\nb\rc\r\n"))
	if err := Each(r, func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestEachLongLine(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	got := collectLines(t, "a\n"+long+"\rb")
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got))
	}
	if got[1] != long {
		t.Fatalf("long line truncated to %d bytes", len(got[1]))
	}
	if got[0] != "a" || got[2] != "b" {
		t.Fatalf("unexpected surrounding lines %q and %q", got[0], got[2])
	}
}

func TestEachReadError(t *testing.T) {
	boom := errors.New("boom")
	r := iotest.ErrReader(boom)
	if err := Each(r, func(string) {}); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
