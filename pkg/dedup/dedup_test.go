package dedup

import (
	"testing"
	"time"
)

func TestShouldProcessWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	d := New(time.Minute, 10)
	d.now = func() time.Time { return now }

	if !d.ShouldProcess("a") {
		t.Fatal("first sighting must be processed")
	}
	if d.ShouldProcess("a") {
		t.Fatal("duplicate within ttl must be skipped")
	}
	now = now.Add(2 * time.Minute)
	if !d.ShouldProcess("a") {
		t.Fatal("expired key must be processed again")
	}
	if !d.ShouldProcess("") || !d.ShouldProcess("") {
		t.Fatal("empty id is always processed")
	}
}

func TestForget(t *testing.T) {
	d := New(time.Hour, 10)
	d.ShouldProcess("x")
	d.Forget("x")
	if !d.ShouldProcess("x") {
		t.Fatal("forgotten key must be processed")
	}
}

func TestEvictsExpiredWhenFull(t *testing.T) {
	now := time.Unix(0, 0)
	d := New(time.Second, 2)
	d.now = func() time.Time { return now }
	d.ShouldProcess("a")
	d.ShouldProcess("b")
	now = now.Add(time.Minute)
	d.ShouldProcess("c")
	if len(d.seen) > 2 {
		t.Fatalf("expired keys not evicted: %d", len(d.seen))
	}
}

func TestKey(t *testing.T) {
	if Key([]byte("ab"), []byte("c")) == Key([]byte("a"), []byte("bc")) {
		t.Fatal("part boundaries must change the key")
	}
	if Key([]byte("x")) != Key([]byte("x")) || len(Key([]byte("x"))) != 64 {
		t.Fatal("key must be a stable hex sha256")
	}
}
