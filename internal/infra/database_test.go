package infra

import (
	"context"
	"strings"
	"testing"
)

func TestNewPostgresPoolRejectsBadURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}

	_, err := NewPostgresPool(context.Background(), "postgres://localhost:notaport/stakepool")
	if err == nil || !strings.Contains(err.Error(), "parse postgres config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
