package sanitize

import "testing"

func TestText(t *testing.T) {
	got := Text("  <b>Roof</b> repair &lt;script&gt;alert(1)&lt;/script&gt; ")
	if got != "Roof repair alert(1)" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestLineCollapsesWhitespace(t *testing.T) {
	got := Line("missing\n\n  contact\tdetails ")
	if got != "missing contact details" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("short input should be unchanged, got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("zero max should empty the string, got %q", got)
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatalf("nil in should be nil out")
	}
	in := "<i>note</i>"
	if got := TextPtr(&in); got == nil || *got != "note" {
		t.Fatalf("unexpected ptr result: %v", got)
	}
}
