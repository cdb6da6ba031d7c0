package config

import (
	"testing"
	"time"

	"github.com/lepinkainen/boxset/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	testutil.ResetViper(t)
	SetDefaults()
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	env := testutil.NewTestEnv(t)
	env.MkdirAll("library")

	viper.Set(KeyLibraryRoot, env.Path("library"))
	viper.Set(KeyOutputDir, env.Path("out"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, env.Path("library"), cfg.SidecarRoot)
	assert.Equal(t, env.Path("library"), cfg.MediaRoot)
	assert.Equal(t, 2, cfg.MinMembers)
	assert.Equal(t, OverviewProvider, cfg.OverviewSource)
	assert.Equal(t, LayoutDirectory, cfg.Layout)
	assert.Equal(t, 100*time.Millisecond, cfg.Throttle)
	assert.Equal(t, 720*time.Hour, cfg.CacheTTL)
	assert.Equal(t, ".nfo", cfg.SidecarExtension)
	assert.Contains(t, cfg.VideoExtensions, ".webm")
	assert.False(t, cfg.Overwrite)
	assert.False(t, cfg.EnrichmentEnabled())
}

func TestLoadOverrides(t *testing.T) {
	resetViper(t)
	env := testutil.NewTestEnv(t)
	env.MkdirAll("library")
	env.MkdirAll("nfo")

	viper.Set(KeyLibraryRoot, env.Path("library"))
	viper.Set(KeySidecarRoot, env.Path("nfo"))
	viper.Set(KeyMediaRoot, "/srv/movies")
	viper.Set(KeyOutputDir, env.Path("out"))
	viper.Set(KeyTMDBAPIKey, " key ")
	viper.Set(KeyMinMembers, 1)
	viper.Set(KeyOverviewSource, "LOCAL")
	viper.Set(KeyLayout, "flat")
	viper.Set(KeyThrottle, "2s")
	viper.Set(KeySidecarExt, "XML")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, env.Path("nfo"), cfg.SidecarRoot)
	assert.Equal(t, "/srv/movies", cfg.MediaRoot)
	assert.Equal(t, "key", cfg.TMDBAPIKey)
	assert.True(t, cfg.EnrichmentEnabled())
	assert.Equal(t, 1, cfg.MinMembers)
	assert.Equal(t, OverviewLocal, cfg.OverviewSource)
	assert.Equal(t, LayoutFlat, cfg.Layout)
	assert.Equal(t, 2*time.Second, cfg.Throttle)
	assert.Equal(t, ".xml", cfg.SidecarExtension)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testutil.TestEnv)
		want  string
	}{
		{
			name:  "missing library",
			setup: func(env *testutil.TestEnv) { viper.Set(KeyOutputDir, env.Path("out")) },
			want:  "library root is required",
		},
		{
			name:  "missing output",
			setup: func(env *testutil.TestEnv) { viper.Set(KeyLibraryRoot, env.RootDir()) },
			want:  "output directory is required",
		},
		{
			name: "unreadable library",
			setup: func(env *testutil.TestEnv) {
				viper.Set(KeyLibraryRoot, env.Path("nope"))
				viper.Set(KeyOutputDir, env.Path("out"))
			},
			want: "is not readable",
		},
		{
			name: "library is a file",
			setup: func(env *testutil.TestEnv) {
				env.WriteFileString("file", "x")
				viper.Set(KeyLibraryRoot, env.Path("file"))
				viper.Set(KeyOutputDir, env.Path("out"))
			},
			want: "is not a directory",
		},
		{
			name: "bad min members",
			setup: func(env *testutil.TestEnv) {
				viper.Set(KeyLibraryRoot, env.RootDir())
				viper.Set(KeyOutputDir, env.Path("out"))
				viper.Set(KeyMinMembers, 0)
			},
			want: "at least 1",
		},
		{
			name: "bad overview source",
			setup: func(env *testutil.TestEnv) {
				viper.Set(KeyLibraryRoot, env.RootDir())
				viper.Set(KeyOutputDir, env.Path("out"))
				viper.Set(KeyOverviewSource, "remote")
			},
			want: "invalid overview source",
		},
		{
			name: "bad layout",
			setup: func(env *testutil.TestEnv) {
				viper.Set(KeyLibraryRoot, env.RootDir())
				viper.Set(KeyOutputDir, env.Path("out"))
				viper.Set(KeyLayout, "nested")
			},
			want: "invalid output layout",
		},
		{
			name: "bad throttle",
			setup: func(env *testutil.TestEnv) {
				viper.Set(KeyLibraryRoot, env.RootDir())
				viper.Set(KeyOutputDir, env.Path("out"))
				viper.Set(KeyThrottle, "fast")
			},
			want: "invalid duration for tmdb.throttle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			env := testutil.NewTestEnv(t)
			tt.setup(env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
