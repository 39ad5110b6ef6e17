// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sieve/pkg/types"
)

const curatorsYAML = `curators:
  - orcid: orcid:0000-0002-5002-8648
    name: Ada Admin
    role: admin
  - orcid: https://orcid.org/0000-0001-1111-2222
    name: Carl Curator
  - orcid: ""
    name: no id
`

func writeCurators(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testSetup(t *testing.T, content string, ttl time.Duration) (*AllowList, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curators.yaml")
	if content != "" {
		writeCurators(t, path, content)
	}
	return NewAllowList(types.AuthConfig{CuratorsFile: path, CacheTTL: ttl}, nil), path
}

func TestLoadNormalizes(t *testing.T) {
	a, _ := testSetup(t, curatorsYAML, time.Minute)

	curators, err := a.Curators()
	require.NoError(t, err)
	assert.Len(t, curators, 2)
	assert.Equal(t, Curator{ORCID: "0000-0002-5002-8648", Name: "Ada Admin", Role: RoleAdmin}, curators["0000-0002-5002-8648"])
	assert.Equal(t, RoleCurator, curators["0000-0001-1111-2222"].Role, "role defaults to curator")
}

func TestAuthorization(t *testing.T) {
	a, _ := testSetup(t, curatorsYAML, time.Minute)

	tests := []struct {
		id         string
		authorized bool
		admin      bool
	}{
		{"0000-0002-5002-8648", true, true},
		{"orcid:0000-0002-5002-8648", true, true},
		{"https://orcid.org/0000-0001-1111-2222", true, false},
		{"orcid:0000-0001-1111-2222", true, false},
		{"0000-0009-9999-9999", false, false},
		{"", false, false},
		{"orcid:", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.authorized, a.IsAuthorized(tt.id), "IsAuthorized(%q)", tt.id)
		assert.Equal(t, tt.admin, a.IsAdmin(tt.id), "IsAdmin(%q)", tt.id)
	}

	role, ok := a.Role("orcid:0000-0001-1111-2222")
	assert.True(t, ok)
	assert.Equal(t, RoleCurator, role)
	_, ok = a.Role("0000-0009-9999-9999")
	assert.False(t, ok)
}

func TestFailsClosed(t *testing.T) {
	missing, _ := testSetup(t, "", time.Minute)
	assert.False(t, missing.IsAuthorized("0000-0002-5002-8648"))

	malformed, _ := testSetup(t, "curators: [unclosed", time.Minute)
	_, err := malformed.Curators()
	assert.Error(t, err)
	assert.False(t, malformed.IsAuthorized("0000-0002-5002-8648"))
	assert.False(t, malformed.IsAdmin("0000-0002-5002-8648"))
}

func TestCacheAndInvalidate(t *testing.T) {
	a, path := testSetup(t, curatorsYAML, time.Hour)
	require.True(t, a.IsAuthorized("0000-0001-1111-2222"))

	writeCurators(t, path, "curators: []\n")
	assert.True(t, a.IsAuthorized("0000-0001-1111-2222"), "cached list is used until the TTL expires")

	a.Invalidate()
	assert.False(t, a.IsAuthorized("0000-0001-1111-2222"))
}

func TestTTLExpiry(t *testing.T) {
	a, path := testSetup(t, curatorsYAML, 50*time.Millisecond)
	require.True(t, a.IsAuthorized("0000-0001-1111-2222"))

	writeCurators(t, path, "curators: []\n")
	assert.Eventually(t, func() bool {
		return !a.IsAuthorized("0000-0001-1111-2222")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchReloads(t *testing.T) {
	a, path := testSetup(t, curatorsYAML, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Watch(ctx))

	require.False(t, a.IsAuthorized("0000-0003-3333-4444"))
	writeCurators(t, path, curatorsYAML+"  - orcid: 0000-0003-3333-4444\n")

	assert.Eventually(t, func() bool {
		return a.IsAuthorized("0000-0003-3333-4444")
	}, 5*time.Second, 25*time.Millisecond)
}

func TestWatchNotifiesOnChange(t *testing.T) {
	a, path := testSetup(t, curatorsYAML, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 16)
	a.OnChange(func() {
		list, err := a.Curators()
		if err != nil {
			return
		}
		ids := make([]string, 0, len(list))
		for id := range list {
			ids = append(ids, id)
		}
		changes <- ids
	})
	require.NoError(t, a.Watch(ctx))

	writeCurators(t, path, curatorsYAML+"  - orcid: 0000-0003-3333-4444\n")

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ids := <-changes:
			if slices.Contains(ids, "0000-0003-3333-4444") {
				return
			}
		case <-timeout:
			t.Fatal("no change notification with the new curator")
		}
	}
}
