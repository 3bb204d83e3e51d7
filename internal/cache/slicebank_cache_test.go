package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

func TestSliceBankCacheL1RoundTrip(t *testing.T) {
	c := New(nil, true, false, time.Minute, zap.NewNop())
	bank := &entities.SliceBank{ID: "bank1", SessionID: "sess1", StemRole: entities.StemRoleDrums}

	c.Set(context.Background(), "sess1", entities.StemRoleDrums, bank)

	got, ok := c.Get(context.Background(), "sess1", entities.StemRoleDrums)
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if got.ID != bank.ID {
		t.Errorf("got bank %q, want %q", got.ID, bank.ID)
	}
	if c.Metrics().L1Hits != 1 {
		t.Errorf("expected one L1 hit recorded, got %d", c.Metrics().L1Hits)
	}
}

func TestSliceBankCacheMissForDifferentRole(t *testing.T) {
	c := New(nil, true, false, time.Minute, zap.NewNop())
	c.Set(context.Background(), "sess1", entities.StemRoleDrums, &entities.SliceBank{ID: "bank1"})

	_, ok := c.Get(context.Background(), "sess1", entities.StemRoleBass)
	if ok {
		t.Error("expected miss for a different stem role")
	}
}

func TestSliceBankCacheExpiresAfterTTL(t *testing.T) {
	c := New(nil, true, false, 10*time.Millisecond, zap.NewNop())
	c.Set(context.Background(), "sess1", entities.StemRoleDrums, &entities.SliceBank{ID: "bank1"})

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(context.Background(), "sess1", entities.StemRoleDrums)
	if ok {
		t.Error("expected entry to have expired")
	}
}

func TestSliceBankCacheInvalidate(t *testing.T) {
	c := New(nil, true, false, time.Minute, zap.NewNop())
	c.Set(context.Background(), "sess1", entities.StemRoleDrums, &entities.SliceBank{ID: "bank1"})

	c.Invalidate(context.Background(), "sess1", entities.StemRoleDrums)

	_, ok := c.Get(context.Background(), "sess1", entities.StemRoleDrums)
	if ok {
		t.Error("expected miss after Invalidate")
	}
}

func TestSliceBankCacheDisabledLevelsAlwaysMiss(t *testing.T) {
	c := New(nil, false, false, time.Minute, zap.NewNop())
	c.Set(context.Background(), "sess1", entities.StemRoleDrums, &entities.SliceBank{ID: "bank1"})

	_, ok := c.Get(context.Background(), "sess1", entities.StemRoleDrums)
	if ok {
		t.Error("expected miss when both cache levels are disabled")
	}
}
