package validator

import "testing"

type order struct {
	Order string `validate:"omitempty,lead_order"`
}

func TestRegisterEnum(t *testing.T) {
	val := New()
	if err := val.RegisterEnum("lead_order", "score", "recency"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, ok := range []string{"", "score", "recency"} {
		if err := val.Struct(order{Order: ok}); err != nil {
			t.Fatalf("%q should pass: %v", ok, err)
		}
	}
	if err := val.Struct(order{Order: "random"}); err == nil {
		t.Fatal("unknown value should fail")
	}
	if err := val.Var("created", "required,lead_order"); err == nil {
		t.Fatal("Var should apply the enum")
	}
}

func TestRegisterEnumNeedsValues(t *testing.T) {
	if err := New().RegisterEnum("empty"); err == nil {
		t.Fatal("expected error for empty enum")
	}
}
