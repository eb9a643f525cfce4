package txscope

import (
	"context"
	"testing"
)

func TestInScope_NoScope(t *testing.T) {
	ctx := context.Background()
	if InScope(ctx) {
		t.Error("expected no scope on a bare context")
	}
	if CurrentClient(ctx) != nil {
		t.Error("expected nil client on a bare context")
	}
}

func TestInScope_WithScope(t *testing.T) {
	sc := &scope{depth: 1}
	ctx := context.WithValue(context.Background(), scopeKey{}, sc)

	if !InScope(ctx) {
		t.Error("expected scope to be detected")
	}
}

func TestScope_NestingCounter(t *testing.T) {
	sc := &scope{depth: 1}
	ctx := context.WithValue(context.Background(), scopeKey{}, sc)

	// Simulate a nested RunTrans reusing the existing scope.
	found := fromContext(ctx)
	if found == nil {
		t.Fatal("expected to find the injected scope")
	}
	found.mu.Lock()
	found.depth++
	found.mu.Unlock()

	if sc.depth != 2 {
		t.Errorf("expected depth 2 after nested entry, got %d", sc.depth)
	}

	found.mu.Lock()
	found.depth--
	found.mu.Unlock()

	if sc.depth != 1 {
		t.Errorf("expected depth back to 1, got %d", sc.depth)
	}
}
