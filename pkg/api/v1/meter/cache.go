package meter

import "sync"

// Cache holds the latest export meter reading from M-Bus or P1ib for the http api.
type Cache struct {
	data *Data
	sync.RWMutex
}

// Get returns the latest reading or nil before the first one.
func (c *Cache) Get() *Data {
	c.RLock()
	defer c.RUnlock()
	return c.data
}
func (c *Cache) Set(d *Data) {
	c.Lock()
	c.data = d
	c.Unlock()
}
