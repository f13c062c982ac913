package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator(t *testing.T) {
	err := NewValidator().
		Required("server.address", " ").
		URL("github.base_url", "api.github.example").
		URL("gitlab.base_url", "").
		Min("rate_limit", -1, 0).
		MinDuration("debounce", -time.Second, 0).
		OneOf("compression", "LZ4", []string{"zstd", "gzip", "none"}).
		OneOf("format", "SARIF", []string{"text", "sarif"}).
		Check("log.level", errors.New("unknown level")).
		Check("log.json", nil).
		Custom("history.path", func() bool { return false }, "is required").
		Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	want := []string{"server.address", "github.base_url", "rate_limit", "debounce", "compression", "log.level", "history.path"}
	if len(verrs) != len(want) {
		t.Fatalf("got %d errors (%v), want %d", len(verrs), verrs, len(want))
	}
	for i, field := range want {
		if verrs[i].Field != field {
			t.Errorf("error %d field = %q, want %q", i, verrs[i].Field, field)
		}
	}
	if !strings.Contains(err.Error(), "compression: \"LZ4\" must be one of: zstd, gzip, none") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidator_Valid(t *testing.T) {
	err := NewValidator().
		Required("server.address", ":8080").
		URL("github.base_url", "https://ghe.example.com/api/v3").
		Min("rate_limit", 0, 0).
		Validate()
	if err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
