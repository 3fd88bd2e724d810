package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type mapCache struct {
	data   map[string]string
	getErr error
	sets   int
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key, value string) error {
	m.sets++
	m.data[key] = value
	return nil
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "Song/Name-Artist.lrc", "[00:01.00]hi"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "Song/Name-Artist.lrc", "[00:01.00]hi again"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := reopened.Get(ctx, "Song/Name-Artist.lrc")
	if err != nil || !ok || v != "[00:01.00]hi again" {
		t.Errorf("unexpected reopen result %q ok=%v err=%v", v, ok, err)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	broken := &mapCache{data: map[string]string{}, getErr: errors.New("down")}
	first := &mapCache{data: map[string]string{}}
	second := &mapCache{data: map[string]string{"k": "v"}}

	chain := Chain{broken, first, second}
	v, ok, err := chain.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("expected hit from second layer, got %q %v %v", v, ok, err)
	}

	if _, ok, err := chain.Get(ctx, "nope"); ok || err == nil {
		t.Errorf("expected miss with first error, got ok=%v err=%v", ok, err)
	}

	if err := chain.Set(ctx, "n", "1"); err != nil {
		t.Fatal(err)
	}
	if first.sets != 1 || second.sets != 1 || broken.sets != 1 {
		t.Errorf("expected every layer written, got %d %d %d", broken.sets, first.sets, second.sets)
	}
}

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lyrics.db")

	c, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", "two"); err != nil {
		t.Fatal(err)
	}
	c.Close()

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || v != "two" {
		t.Errorf("unexpected result %q ok=%v err=%v", v, ok, err)
	}
}
