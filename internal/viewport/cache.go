package viewport

import (
	"sync"
	"time"
)

// LayerMode selects how the heavy object layer is represented.
type LayerMode string

const (
	// LayerModeVector renders live vector shapes.
	LayerModeVector LayerMode = "vector"
	// LayerModeBitmap renders a cached rasterization of the layer.
	LayerModeBitmap LayerMode = "bitmap"
)

const defaultSettleDelay = 200 * time.Millisecond

// CacheController flips the expensive layer to its cached bitmap while the
// camera is moving and restores live vectors once movement settles. The
// settle timer is owned by the controller and stopped on Close.
type CacheController struct {
	mu          sync.Mutex
	mode        LayerMode
	settleDelay time.Duration
	settleTimer *time.Timer
	closed      bool
}

// NewCacheController returns a controller starting in vector mode. A
// non-positive settle delay falls back to the default.
func NewCacheController(settleDelay time.Duration) *CacheController {
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	return &CacheController{mode: LayerModeVector, settleDelay: settleDelay}
}

// Mode reports the current layer representation.
func (c *CacheController) Mode() LayerMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// CameraMoved switches to the bitmap representation and re-arms the settle
// timer; call it on every pan or zoom step.
func (c *CacheController) CameraMoved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.mode = LayerModeBitmap
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = time.AfterFunc(c.settleDelay, c.settle)
}

func (c *CacheController) settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.mode = LayerModeVector
}

// Close stops the settle timer and pins the controller in vector mode.
func (c *CacheController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	c.mode = LayerModeVector
}
