package migrations

import (
	"io/fs"
	"sync"
)

// Source is a named migration filesystem laid out with PostgreSQL files at
// the root and SQLite overrides under sqlite/.
type Source struct {
	Name string
	FS   fs.FS
}

var registry = struct {
	sync.RWMutex
	sources []Source
}{}

// Register adds a migration source. Registering a name again replaces the
// earlier filesystem in place, keeping apply order stable.
func Register(name string, fsys fs.FS) {
	if fsys == nil {
		return
	}
	registry.Lock()
	defer registry.Unlock()
	for i, src := range registry.sources {
		if src.Name == name {
			registry.sources[i].FS = fsys
			return
		}
	}
	registry.sources = append(registry.sources, Source{Name: name, FS: fsys})
}

// Sources returns the registered sources in registration order.
func Sources() []Source {
	registry.RLock()
	defer registry.RUnlock()
	return append([]Source(nil), registry.sources...)
}

// Filesystems returns the registered filesystems in apply order.
func Filesystems() []fs.FS {
	sources := Sources()
	out := make([]fs.FS, 0, len(sources))
	for _, src := range sources {
		out = append(out, src.FS)
	}
	return out
}
