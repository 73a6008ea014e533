package thumbs

import (
	"fmt"
	"image"
	"testing"
)

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestCacheGetMiss(t *testing.T) {
	c := NewCache(1000, 10)
	if _, ok := c.Get("absent"); ok {
		t.Error("Get on empty cache reported a hit")
	}
}

func TestCachePutAndGet(t *testing.T) {
	c := NewCache(1000, 10)
	img := testImage(2, 2)

	c.Put("a", img, 16)

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if got != img {
		t.Error("Get returned a different image")
	}
	if c.Len() != 1 || c.Cost() != 16 {
		t.Errorf("len=%d cost=%d, want 1/16", c.Len(), c.Cost())
	}
}

func TestCachePutReplacesExistingEntry(t *testing.T) {
	c := NewCache(1000, 10)
	c.Put("a", testImage(2, 2), 16)

	replacement := testImage(4, 4)
	c.Put("a", replacement, 64)

	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if c.Cost() != 64 {
		t.Errorf("cost = %d, want 64", c.Cost())
	}
	got, _ := c.Get("a")
	if got != replacement {
		t.Error("replacement not installed")
	}
}

func TestCacheNilImageIgnored(t *testing.T) {
	c := NewCache(1000, 10)
	c.Put("a", nil, 16)
	if c.Len() != 0 {
		t.Error("nil image was cached")
	}
}

func TestCacheEvictsLRUOnEntryBound(t *testing.T) {
	c := NewCache(1_000_000, 3)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), testImage(1, 1), 4)
	}

	// k0 is now least recently used
	c.Put("k3", testImage(1, 1), 4)

	if _, ok := c.Get("k0"); ok {
		t.Error("LRU entry survived eviction")
	}
	for _, key := range []string{"k1", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %s was evicted", key)
		}
	}
}

func TestCacheGetPromotes(t *testing.T) {
	c := NewCache(1_000_000, 3)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), testImage(1, 1), 4)
	}

	// touch k0 so k1 becomes the eviction victim
	c.Get("k0")
	c.Put("k3", testImage(1, 1), 4)

	if _, ok := c.Get("k0"); !ok {
		t.Error("promoted entry was evicted")
	}
	if _, ok := c.Get("k1"); ok {
		t.Error("expected k1 to be the eviction victim")
	}
}

func TestCacheEvictsOnCostBound(t *testing.T) {
	c := NewCache(100, 1000)
	c.Put("a", testImage(1, 1), 60)
	c.Put("b", testImage(1, 1), 60)

	if _, ok := c.Get("a"); ok {
		t.Error("cost bound did not evict the older entry")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("newest entry was evicted")
	}
	if c.Cost() != 60 {
		t.Errorf("cost = %d, want 60", c.Cost())
	}
}

func TestCacheNeverEvictsJustInsertedEntry(t *testing.T) {
	c := NewCache(100, 10)

	// a single entry over the cost bound stays resident
	c.Put("huge", testImage(1, 1), 500)

	if _, ok := c.Get("huge"); !ok {
		t.Error("just-inserted oversized entry was evicted")
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestCacheRemove(t *testing.T) {
	c := NewCache(1000, 10)
	c.Put("a", testImage(1, 1), 4)

	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("removed entry still present")
	}
	if c.Cost() != 0 {
		t.Errorf("cost = %d, want 0", c.Cost())
	}

	// removing an absent key is a no-op
	c.Remove("a")
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want int64
	}{
		{"rgba uses pixel buffer", image.NewRGBA(image.Rect(0, 0, 10, 10)), 400},
		{"gray uses pixel buffer", image.NewGray(image.Rect(0, 0, 10, 10)), 100},
		{"ycbcr sums planes", image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio444), 192},
		{"unknown type estimates 4 bytes per pixel", image.NewAlpha(image.Rect(0, 0, 5, 5)), 100},
		{"nil image", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateCost(tt.img); got != tt.want {
				t.Errorf("EstimateCost = %d, want %d", got, tt.want)
			}
		})
	}
}
