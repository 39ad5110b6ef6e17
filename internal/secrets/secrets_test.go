// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sieve/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ORCIDClientID, "  APP-ABC123  \n")
				writeFile(t, dir, ORCIDClientSecret, "s3cr3t\n")
				return dir
			},
			want: map[string]string{
				ORCIDClientID:     "APP-ABC123",
				ORCIDClientSecret: "s3cr3t",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ORCIDClientID, "APP-1")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{ORCIDClientID: "APP-1"},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, ORCIDClientSecret, "real")
				return dir
			},
			want: map[string]string{ORCIDClientSecret: "real"},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ORCIDClientID, "APP-2")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{ORCIDClientID: "APP-2"},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir, nil)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, ORCIDClientID, "APP-3")

	badPath := filepath.Join(dir, ORCIDClientSecret)
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "APP-3", got[ORCIDClientID])
	_, hasBad := got[ORCIDClientSecret]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestApplyIdentity(t *testing.T) {
	s := map[string]string{ORCIDClientID: "APP-FILE", ORCIDClientSecret: "file-secret"}

	empty := types.IdentityConfig{}
	ApplyIdentity(&empty, s)
	assert.Equal(t, "APP-FILE", empty.ClientID)
	assert.Equal(t, "file-secret", empty.ClientSecret)

	set := types.IdentityConfig{ClientID: "APP-ENV"}
	ApplyIdentity(&set, s)
	assert.Equal(t, "APP-ENV", set.ClientID, "configured value wins")
	assert.Equal(t, "file-secret", set.ClientSecret)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
