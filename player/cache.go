package player

import "sync"

// Decode completions arrive on engine goroutines while the scheduler mutates
// slots from the pull path, so the cache owns its own mutex. The session
// counter invalidates completions from a torn-down decode pass: clear bumps
// it, and a complete or fail carrying an older session token is dropped.

type slotState uint8

const (
	slotEmpty slotState = iota
	slotPending
	slotReady
)

type slot struct {
	state slotState
	img   Image
}

// reorderCache holds decoded pictures indexed by picture order count until
// the scheduler presents them. All operations are O(1); the lock is held only
// for slot mutation, never across a decode or a Release.
type reorderCache struct {
	mu      sync.Mutex
	session uint64
	slots   []slot
}

func newReorderCache(numSlots int) *reorderCache {
	return &reorderCache{slots: make([]slot, numSlots)}
}

// clear empties every slot, releases any ready images, and invalidates all
// outstanding completions by advancing the session counter.
func (c *reorderCache) clear() {
	c.mu.Lock()
	c.session++
	var released []Image
	for i := range c.slots {
		if c.slots[i].state == slotReady {
			released = append(released, c.slots[i].img)
		}
		c.slots[i] = slot{}
	}
	c.mu.Unlock()

	for _, img := range released {
		img.Release()
	}
}

// stateOf returns the current state of the slot for poc.
func (c *reorderCache) stateOf(poc uint32) slotState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[poc].state
}

// markPending marks the slot for poc as awaiting a decode and returns the
// session token the eventual completion must present.
func (c *reorderCache) markPending(poc uint32) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[poc].state = slotPending
	return c.session
}

// complete stores a decoded image in the slot for poc. A completion from a
// stale session, or for a slot no longer pending, is dropped and the image
// released.
func (c *reorderCache) complete(poc uint32, img Image, session uint64) {
	c.mu.Lock()
	if session != c.session || int(poc) >= len(c.slots) || c.slots[poc].state != slotPending {
		c.mu.Unlock()
		if img != nil {
			img.Release()
		}
		return
	}
	c.slots[poc] = slot{state: slotReady, img: img}
	c.mu.Unlock()
}

// fail returns the slot for poc to empty so the sample can be resubmitted.
// Stale sessions are dropped.
func (c *reorderCache) fail(poc uint32, session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || int(poc) >= len(c.slots) || c.slots[poc].state != slotPending {
		return
	}
	c.slots[poc] = slot{}
}

// take removes and returns the ready image for poc, or reports that the slot
// is not ready yet.
func (c *reorderCache) take(poc uint32) (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slots[poc].state != slotReady {
		return nil, false
	}
	img := c.slots[poc].img
	c.slots[poc] = slot{}
	return img, true
}
