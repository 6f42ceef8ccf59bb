package daemon

import (
	"testing"
	"time"
)

func TestAlgoCacheGetPut(t *testing.T) {
	c := newAlgoCache(8, time.Minute)

	if _, ok := c.get("missing"); ok {
		t.Fatal("get on empty cache returned ok=true")
	}

	c.put("k", []string{"a", "b"})
	v, ok := c.get("k")
	if !ok {
		t.Fatal("get after put returned ok=false")
	}
	ids, ok := v.([]string)
	if !ok || len(ids) != 2 {
		t.Fatalf("value = %#v, want []string of length 2", v)
	}
}

func TestAlgoCacheInvalidateAll(t *testing.T) {
	c := newAlgoCache(8, time.Minute)
	c.put("a", 1)
	c.put("b", 2)

	c.invalidateAll()

	if _, ok := c.get("a"); ok {
		t.Fatal("entry survived invalidateAll")
	}
	if _, ok := c.get("b"); ok {
		t.Fatal("entry survived invalidateAll")
	}
}

func TestAlgoCacheExpiresAfterTTL(t *testing.T) {
	c := newAlgoCache(8, 10*time.Millisecond)
	c.put("k", "v")
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.get("k"); ok {
		t.Fatal("entry still present after TTL elapsed")
	}
}
