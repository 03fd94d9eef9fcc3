package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindPaymentRequired, http.StatusPaymentRequired},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: got %d want %d", tc.kind, got, tc.want)
		}
	}
}

func TestWrapKeepsCauseReachable(t *testing.T) {
	cause := errors.New("row locked")
	err := fmt.Errorf("debit: %w", Wrap(KindUnavailable, "wallet is busy", cause))

	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if !Is(err, KindUnavailable) {
		t.Fatalf("expected unavailable, got %d", GetKind(err))
	}
	if GetKind(cause) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}
