package config

import (
	"testing"
	"time"

	"github.com/clubforge/clubchat/internal/typing"
)

func TestServerAddrNormalization(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"", ":8080"},
		{"9090", ":9090"},
		{":3000", ":3000"},
		{"127.0.0.1:8080", "127.0.0.1:8080"},
	}
	for _, tc := range cases {
		got, err := ServerConfig{Port: tc.port}.Addr()
		if err != nil {
			t.Fatalf("Addr(%q) err: %v", tc.port, err)
		}
		if got != tc.want {
			t.Fatalf("Addr(%q) = %q, want %q", tc.port, got, tc.want)
		}
	}
}

func TestServerAddrRejectsWhitespace(t *testing.T) {
	if _, err := (ServerConfig{Port: "80 80"}).Addr(); err == nil {
		t.Fatal("expected error for port with whitespace")
	}
}

func TestArkEnabled(t *testing.T) {
	if (ArkConfig{}).Enabled() {
		t.Fatal("empty ark config reported enabled")
	}
	if !(ArkConfig{Model: "m", APIKey: "k"}).Enabled() {
		t.Fatal("api-key config reported disabled")
	}
	if !(ArkConfig{Model: "m", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Fatal("ak/sk config reported disabled")
	}
	if (ArkConfig{Model: "m", AccessKey: "a"}).Enabled() {
		t.Fatal("half an ak/sk pair reported enabled")
	}
}

func TestEngineOptionsModes(t *testing.T) {
	natural := TypingConfig{Mode: "natural", BaseDelayMs: 20, ThinkingMs: 1200, GraceMs: 300, CursorIntervalMs: 530}
	opts := natural.EngineOptions()
	if _, ok := opts.Policy.(typing.NaturalPolicy); !ok {
		t.Fatalf("policy = %T, want NaturalPolicy", opts.Policy)
	}
	if opts.Thinking != 1200*time.Millisecond || opts.Grace != 300*time.Millisecond {
		t.Fatalf("durations not mapped: %+v", opts)
	}

	constant := TypingConfig{Mode: "constant", BaseDelayMs: 20}
	if _, ok := constant.EngineOptions().Policy.(typing.ConstantPolicy); !ok {
		t.Fatal("constant mode did not select ConstantPolicy")
	}
}
