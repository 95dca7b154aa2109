package cache

// Sweep removes every expired entry and returns how many were dropped
func (c *TTLCache[V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[V]).expired(now) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	c.mu.Unlock()

	if removed > 0 {
		c.log.WithField("removed", removed).Info("Cache sweep removed expired entries")
	}
	return removed
}

// Start launches the periodic sweep. Calling it more than once has no effect.
func (c *TTLCache[V]) Start() {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	// ticker is created before returning so a fake clock sees it immediately
	ticker := c.clock.NewTicker(c.sweepInterval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				c.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the periodic sweep and waits for it to exit.
// A stopped cache can be started again.
func (c *TTLCache[V]) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
