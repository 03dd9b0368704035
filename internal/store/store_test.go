package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func exerciseDocuments(t *testing.T, docs Documents) {
	t.Helper()
	ctx := context.Background()

	var missing map[string]string
	found, err := docs.Load(ctx, DocPasswords, &missing)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if found {
		t.Fatalf("expected missing document")
	}

	want := map[string][]string{"alice": {"alice", "bob"}}
	if err := docs.Save(ctx, DocMatrix, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	var got map[string][]string
	found, err = docs.Load(ctx, DocMatrix, &got)
	if err != nil || !found {
		t.Fatalf("load saved: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Save rewrites the whole document.
	if err := docs.Save(ctx, DocMatrix, map[string][]string{"bob": {"bob"}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got = nil
	if _, err := docs.Load(ctx, DocMatrix, &got); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := got["alice"]; ok || len(got) != 1 {
		t.Fatalf("expected full rewrite, got %v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseDocuments(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseDocuments(t, fs)

	if _, err := os.Stat(filepath.Join(dir, "access_matrix.json")); err != nil {
		t.Fatalf("expected matrix file on disk: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreRejectsUnknownDocument(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Save(context.Background(), "nope", 1); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected unknown document error, got %v", err)
	}
}

func TestFileStoreReadsIndentedLegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := "{\n    \"alice\": 1250.0\n}"
	if err := os.WriteFile(filepath.Join(dir, "balances_database.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	var balances map[string]float64
	found, err := fs.Load(context.Background(), DocBalances, &balances)
	if err != nil || !found {
		t.Fatalf("load legacy: found=%v err=%v", found, err)
	}
	if balances["alice"] != 1250 {
		t.Fatalf("expected 1250, got %v", balances["alice"])
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseDocuments(t, NewRedisStore(client, "bank:"))

	if !mr.Exists("bank:doc:matrix") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS documents`); err != nil {
		t.Fatalf("reset table: %v", err)
	}
	ps, err := NewPostgresStore(ctx, pool)
	if err != nil {
		t.Fatalf("new postgres store: %v", err)
	}
	exerciseDocuments(t, ps)
}

func TestLoadOrInit(t *testing.T) {
	ctx := context.Background()
	docs := NewMemoryStore()

	var phones []string
	created, err := LoadOrInit(ctx, docs, DocPhones, &phones, []string{"01012345678"})
	if err != nil || !created {
		t.Fatalf("expected init, created=%v err=%v", created, err)
	}

	created, err = LoadOrInit(ctx, docs, DocPhones, &phones, []string{})
	if err != nil || created {
		t.Fatalf("expected existing document, created=%v err=%v", created, err)
	}
	if len(phones) != 1 || phones[0] != "01012345678" {
		t.Fatalf("unexpected phones %v", phones)
	}
}
