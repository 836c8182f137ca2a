package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestFrameRingAdvanceWraps(t *testing.T) {
	var ring frameRing
	if ring.index() != 0 {
		t.Fatalf("fresh ring index = %d, want 0", ring.index())
	}
	for i := 0; i < 3*MaxFramesInFlight; i++ {
		want := (i + 1) % MaxFramesInFlight
		ring.advance()
		if ring.index() != want {
			t.Fatalf("after %d advances index = %d, want %d", i+1, ring.index(), want)
		}
	}
}

func TestDrainReleasesEmptiesQueue(t *testing.T) {
	slot := &frameSlot{}
	slot.queueRelease(resourceRelease{Kind: releaseBuffer, Buffer: vk.NullBuffer})
	slot.queueRelease(resourceRelease{Kind: releaseImage})
	slot.queueRelease(resourceRelease{Kind: releaseFramebuffer})

	var got []releaseKind
	n := slot.drainReleases(func(r resourceRelease) {
		got = append(got, r.Kind)
	})
	if n != 3 {
		t.Fatalf("drained %d, want 3", n)
	}
	want := []releaseKind{releaseBuffer, releaseImage, releaseFramebuffer}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("release %d = %d, want %d", i, got[i], want[i])
		}
	}
	if slot.drainReleases(func(resourceRelease) {}) != 0 {
		t.Error("second drain should be empty")
	}
}

// A release queued on a slot must be executed within the next full
// cycle of the ring, once that slot comes around again.
func TestReleaseRunsWhenSlotReused(t *testing.T) {
	var ring frameRing
	released := 0
	release := func(resourceRelease) { released++ }

	ring.slot().queueRelease(resourceRelease{Kind: releaseBuffer})

	// Reusing every other slot does not touch the queued release.
	for i := 0; i < MaxFramesInFlight-1; i++ {
		ring.advance()
		ring.slot().drainReleases(release)
	}
	if released != 0 {
		t.Fatalf("release ran before its slot was reused")
	}

	ring.advance()
	ring.slot().drainReleases(release)
	if released != 1 {
		t.Fatalf("released = %d, want 1 after a full ring cycle", released)
	}
}
