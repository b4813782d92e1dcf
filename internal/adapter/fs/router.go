package fs

import (
	"context"
	"os"
	"strings"

	"tokenprep/internal/port"
)

type route struct {
	prefix string
	fs     port.FileSystem
}

// Router dispatches paths to a file system by prefix. Paths matching no
// registered prefix go to the local file system.
type Router struct {
	local  port.FileSystem
	routes []route
}

func NewRouter(local port.FileSystem) *Router {
	if local == nil {
		local = LocalFS{}
	}
	return &Router{local: local}
}

// Register routes every path starting with prefix (e.g. "s3://") to fsys.
// Longer prefixes win over shorter ones regardless of registration order.
func (r *Router) Register(prefix string, fsys port.FileSystem) {
	for i, rt := range r.routes {
		if rt.prefix == prefix {
			r.routes[i].fs = fsys
			return
		}
	}
	r.routes = append(r.routes, route{prefix: prefix, fs: fsys})
	for i := len(r.routes) - 1; i > 0 && len(r.routes[i].prefix) > len(r.routes[i-1].prefix); i-- {
		r.routes[i], r.routes[i-1] = r.routes[i-1], r.routes[i]
	}
}

// IsRemote reports whether name is served by a registered prefix.
func (r *Router) IsRemote(name string) bool {
	_, ok := r.match(name)
	return ok
}

func (r *Router) match(name string) (port.FileSystem, bool) {
	for _, rt := range r.routes {
		if strings.HasPrefix(name, rt.prefix) {
			return rt.fs, true
		}
	}
	return nil, false
}

// OpenFile opens name on the file system its prefix selects, forwarding
// flag and perm unchanged.
func (r *Router) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (port.File, error) {
	if fsys, ok := r.match(name); ok {
		return fsys.OpenFile(ctx, name, flag, perm)
	}
	return r.local.OpenFile(ctx, name, flag, perm)
}

// Open opens name for reading.
func (r *Router) Open(ctx context.Context, name string) (port.File, error) {
	return r.OpenFile(ctx, name, os.O_RDONLY, 0)
}

// Create creates or truncates name for writing.
func (r *Router) Create(ctx context.Context, name string) (port.File, error) {
	return r.OpenFile(ctx, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}
