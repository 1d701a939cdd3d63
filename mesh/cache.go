package mesh

import (
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

// Cache keeps one built template per parameter set so that resets reload a sheet without building
// it again. Callers always receive their own clone.
type Cache struct {
	mu    sync.Mutex
	built map[uint64]*Mesh
	group singleflight.Group
}

// NewCache ...
func NewCache() *Cache {
	return &Cache{built: make(map[uint64]*Mesh)}
}

// Get returns a clone of the sheet built from p, building it first if it is not cached yet.
// Concurrent calls for the same parameters share a single build. Failed builds are not cached.
func (c *Cache) Get(p Parameters, log logrus.FieldLogger) (*Mesh, error) {
	key := xxh3.HashString(p.String())
	c.mu.Lock()
	m, ok := c.built[key]
	c.mu.Unlock()
	if ok {
		return m.Clone(), nil
	}

	v, err, _ := c.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		m, err := Build(p, log)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.built[key] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mesh).Clone(), nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.built)
}
