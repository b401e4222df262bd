// Released under an MIT license. See LICENSE.

// Package cache remembers where bare command names resolved to.
// Entries are added lazily, only while the cachepaths option is on,
// and are never evicted within a run.
package cache

// T maps a bare command name to the absolute path it resolved to.
type T struct {
	paths map[string]string
}

type cache = T

// New creates an empty command-path cache.
func New() *cache {
	return &cache{paths: map[string]string{}}
}

// Get returns the cached path for name, if any.
func (c *cache) Get(name string) (string, bool) {
	path, found := c.paths[name]

	return path, found
}

// Put records that name resolved to path.
func (c *cache) Put(name, path string) {
	c.paths[name] = path
}
