package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("provider.base_url", "must not be empty")
	if !strings.Contains(err.Error(), "provider.base_url") {
		t.Errorf("expected field in message, got %q", err.Error())
	}

	bare := NewConfigError("", "file not found")
	if strings.Contains(bare.Error(), " in ") {
		t.Errorf("expected no field clause, got %q", bare.Error())
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if !strings.Contains(err.Error(), "run") {
		t.Errorf("expected command name in message, got %q", err.Error())
	}
}
