package phone

import "testing"

func TestNormalizeE164In(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{name: "national us number", input: "(650) 253-0000", region: "US", want: "+16502530000"},
		{name: "already international", input: "+1 650 253 0000", region: "NL", want: "+16502530000"},
		{name: "empty region falls back", input: "650-253-0000", region: "", want: "+16502530000"},
		{name: "garbage kept trimmed", input: "  call me maybe ", region: "US", want: "call me maybe"},
		{name: "blank", input: "   ", region: "US", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164In(tc.input, tc.region); got != tc.want {
				t.Fatalf("NormalizeE164In(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
			}
		})
	}
}

func TestIsDialable(t *testing.T) {
	if !IsDialable("(650) 253-0000", "US") {
		t.Fatalf("expected valid us number to be dialable")
	}
	if IsDialable("12", "US") {
		t.Fatalf("expected short number to be rejected")
	}
	if IsDialable("", "US") {
		t.Fatalf("expected empty input to be rejected")
	}
}
