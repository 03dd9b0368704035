package account

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/congo-pay/bank_system/internal/store"
)

func TestCreateAndBalance(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	dir, err := Open(ctx, docs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := dir.Create(ctx, "alice", 2_500); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !dir.Exists("alice") {
		t.Fatalf("expected alice to exist")
	}
	bal, err := dir.Balance("alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 2_500 {
		t.Fatalf("expected balance 2500, got %v", bal)
	}

	if err := dir.Create(ctx, "alice", 1); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected account exists, got %v", err)
	}
	if _, err := dir.Balance("bob"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected unknown user, got %v", err)
	}
	if err := dir.Create(ctx, "bob", -1); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected negative balance error, got %v", err)
	}

	reopened, err := Open(ctx, docs)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if bal, _ := reopened.Balance("alice"); bal != 2_500 {
		t.Fatalf("balance not persisted, got %v", bal)
	}
}

func TestCreateRollsBack(t *testing.T) {
	ctx := context.Background()
	faulty := store.NewFaulty(store.NewMemoryStore())
	dir, err := Open(ctx, faulty)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	faulty.FailSaves(store.DocBalances)
	if err := dir.Create(ctx, "alice", 10); !errors.Is(err, store.ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if dir.Exists("alice") {
		t.Fatalf("account must be rolled back")
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	dir, err := Open(ctx, store.NewMemoryStore())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := dir.Create(ctx, "alice", 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := dir.Forget(ctx, "alice"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if dir.Exists("alice") {
		t.Fatalf("expected account removed")
	}
}

func TestOpeningBalanceBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	for i := 0; i < 1_000; i++ {
		b := OpeningBalance(rng, 100, 5_000)
		if b < 100 || b > 5_000 || b != float64(int(b)) {
			t.Fatalf("opening balance %v out of range", b)
		}
	}
	if b := OpeningBalance(rng, 7, 7); b != 7 {
		t.Fatalf("expected fixed balance 7, got %v", b)
	}
}

func TestOpenToleratesNullDocument(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	if err := docs.Save(ctx, store.DocBalances, json.RawMessage("null")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	dir, err := Open(ctx, docs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := dir.Create(ctx, "alice", 100); err != nil {
		t.Fatalf("create after null document: %v", err)
	}
	if bal, err := dir.Balance("alice"); err != nil || bal != 100 {
		t.Fatalf("expected 100, got %v (%v)", bal, err)
	}
}
