package redisx

import "testing"

func TestParseURL(t *testing.T) {
	opt, err := ParseURL("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options: %+v", opt)
	}
	if opt.TLSConfig != nil {
		t.Fatal("plain redis url must not enable TLS")
	}
}

func TestParseURLInsecureTLS(t *testing.T) {
	opt, err := ParseURL("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}

func TestParseURLEmpty(t *testing.T) {
	if _, err := ParseURL("", false); err == nil {
		t.Fatal("expected error for empty url")
	}
}
