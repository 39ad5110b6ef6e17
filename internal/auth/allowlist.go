// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth decides which ORCID identities may curate.
//
// The allow-list lives in a YAML file:
//
//	curators:
//	  - orcid: 0000-0002-5002-8648
//	    name: Jane Curator
//	    role: admin
//
// A loaded list is trusted for the configured TTL; Watch drops it as soon
// as the file changes. Every lookup fails closed: a missing or malformed
// file authorizes nobody.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/pkg/types"
)

// Role is a curator's privilege level.
type Role string

const (
	RoleCurator Role = "curator"
	RoleAdmin   Role = "admin"
)

// Curator is one allow-list entry.
type Curator struct {
	ORCID string `yaml:"orcid"`
	Name  string `yaml:"name,omitempty"`
	Role  Role   `yaml:"role,omitempty"`
}

type curatorsFile struct {
	Curators []Curator `yaml:"curators"`
}

const cacheKey = "curators"

// AllowList is a cached view of the curators file.
type AllowList struct {
	path  string
	ttl   time.Duration
	cache *gocache.Cache
	log   *logging.Logger

	// loadMu keeps concurrent cache misses from reading the file twice.
	loadMu sync.Mutex

	hookMu   sync.Mutex
	onChange []func()
}

// NewAllowList creates an allow-list backed by cfg.CuratorsFile.
func NewAllowList(cfg types.AuthConfig, log *logging.Logger) *AllowList {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = types.DefaultConfig().Auth.CacheTTL
	}
	path := cfg.CuratorsFile
	if path == "" {
		path = types.DefaultConfig().Auth.CuratorsFile
	}
	if log == nil {
		log = logging.Nop()
	}
	return &AllowList{
		path:  path,
		ttl:   ttl,
		cache: gocache.New(ttl, 2*ttl),
		log:   log,
	}
}

// Path returns the curators file location.
func (a *AllowList) Path() string { return a.path }

// Curators returns the allow-list keyed by bare ORCID. A missing file
// yields an empty list; a malformed one an error.
func (a *AllowList) Curators() (map[string]Curator, error) {
	if v, ok := a.cache.Get(cacheKey); ok {
		return v.(map[string]Curator), nil
	}

	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	if v, ok := a.cache.Get(cacheKey); ok {
		return v.(map[string]Curator), nil
	}

	curators, err := Load(a.path)
	if err != nil {
		return nil, err
	}
	a.cache.Set(cacheKey, curators, a.ttl)
	a.log.Debug("curator allow-list loaded", "path", a.path, "curators", len(curators))
	return curators, nil
}

// Load reads a curators file. A missing file is an empty list.
func Load(path string) (map[string]Curator, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Curator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading curators file: %w", err)
	}

	var f curatorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing curators file %s: %w", path, err)
	}

	out := make(map[string]Curator, len(f.Curators))
	for _, c := range f.Curators {
		c.ORCID = types.NormalizeORCID(c.ORCID)
		if c.ORCID == "" {
			continue
		}
		c.Role = Role(strings.ToLower(strings.TrimSpace(string(c.Role))))
		if c.Role == "" {
			c.Role = RoleCurator
		}
		out[c.ORCID] = c
	}
	return out, nil
}

// Lookup returns the entry for an ORCID given with or without the
// "orcid:" or URL prefix.
func (a *AllowList) Lookup(orcid string) (Curator, bool) {
	id := types.NormalizeORCID(orcid)
	if id == "" {
		return Curator{}, false
	}
	curators, err := a.Curators()
	if err != nil {
		a.log.Warn("curator allow-list unavailable", "path", a.path, "error", err)
		return Curator{}, false
	}
	c, ok := curators[id]
	return c, ok
}

// IsAuthorized reports whether orcid may record decisions.
func (a *AllowList) IsAuthorized(orcid string) bool {
	_, ok := a.Lookup(orcid)
	return ok
}

// Role returns the curator's role; ok is false when not allow-listed.
func (a *AllowList) Role(orcid string) (Role, bool) {
	c, ok := a.Lookup(orcid)
	return c.Role, ok
}

// IsAdmin reports whether orcid holds the admin role.
func (a *AllowList) IsAdmin(orcid string) bool {
	role, ok := a.Role(orcid)
	return ok && role == RoleAdmin
}

// Invalidate drops the cached list so the next lookup rereads the file.
func (a *AllowList) Invalidate() {
	a.cache.Delete(cacheKey)
}

// OnChange registers fn to run after Watch sees the curators file change
// and has dropped the cached list.
func (a *AllowList) OnChange(fn func()) {
	a.hookMu.Lock()
	defer a.hookMu.Unlock()
	a.onChange = append(a.onChange, fn)
}

func (a *AllowList) changed() {
	a.hookMu.Lock()
	hooks := append([]func(){}, a.onChange...)
	a.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Watch invalidates the cache whenever the curators file is written,
// created, renamed or removed, until ctx is done. The parent directory is
// watched so editors that replace the file are seen.
func (a *AllowList) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	abs, err := filepath.Abs(a.path)
	if err != nil {
		w.Close()
		return fmt.Errorf("resolving %s: %w", a.path, err)
	}
	dir := filepath.Dir(abs)
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		dir = real
		abs = filepath.Join(real, filepath.Base(abs))
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					a.Invalidate()
					a.log.Info("curators file changed", "path", a.path, "op", ev.Op.String())
					a.changed()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				a.log.Warn("curators watcher error", "error", err)
			}
		}
	}()
	return nil
}
