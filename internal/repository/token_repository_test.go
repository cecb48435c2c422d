package repository

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTokenRepository(t *testing.T) {
	repo := NewMemoryTokenRepository()
	ctx := context.Background()

	if revoked, _ := repo.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("fresh token should not be revoked")
	}

	if err := repo.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := repo.IsRevoked(ctx, "jti-1"); !revoked {
		t.Error("expected jti-1 to be revoked")
	}

	// an already expired token needs no entry
	if err := repo.Revoke(ctx, "jti-2", -time.Second); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := repo.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("expired token should not be stored")
	}
}

func TestMemoryTokenRepository_Expiry(t *testing.T) {
	repo := NewMemoryTokenRepository()
	ctx := context.Background()

	repo.Revoke(ctx, "short", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if revoked, _ := repo.IsRevoked(ctx, "short"); revoked {
		t.Error("revocation should lapse after its ttl")
	}
}

func TestMemoryTokenRepository_Suspension(t *testing.T) {
	repo := NewMemoryTokenRepository()
	ctx := context.Background()

	if suspended, _ := repo.IsSuspended(ctx, 7); suspended {
		t.Fatal("account should start active")
	}

	repo.SetSuspended(ctx, 7, true)
	if suspended, _ := repo.IsSuspended(ctx, 7); !suspended {
		t.Error("expected account 7 to be suspended")
	}
	if suspended, _ := repo.IsSuspended(ctx, 8); suspended {
		t.Error("suspension must not leak to other accounts")
	}

	repo.SetSuspended(ctx, 7, false)
	if suspended, _ := repo.IsSuspended(ctx, 7); suspended {
		t.Error("reinstated account should be active")
	}
}
