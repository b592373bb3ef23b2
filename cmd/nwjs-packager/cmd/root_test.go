package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(f *cliFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringSliceVar(&f.platforms, "platforms", nil, "")
	fs.StringVar(&f.outputDir, "output", "", "")
	fs.StringVar(&f.nwVersion, "nw-version", "", "")
	fs.StringVar(&f.nwFlavor, "nw-flavor", "", "")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "")
	fs.IntVar(&f.concurrency, "concurrency", 0, "")
	fs.BoolVar(&f.forceDownload, "force-download", false, "")

	return fs
}

func TestOverridesFromFlags(t *testing.T) {
	t.Parallel()

	t.Run("unset flags stay nil", func(t *testing.T) {
		t.Parallel()

		var f cliFlags

		fs := newFlagSet(&f)
		require.NoError(t, fs.Parse(nil))

		o := overridesFromFlags(fs, &f)
		assert.Nil(t, o.Platforms)
		assert.Nil(t, o.OutputDir)
		assert.Nil(t, o.NwVersion)
		assert.Nil(t, o.Concurrency)
		assert.Nil(t, o.ForceDownload)
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Parallel()

		var f cliFlags

		fs := newFlagSet(&f)
		require.NoError(t, fs.Parse([]string{
			"--platforms", "win-x64,osx-x64",
			"--nw-version", "lts",
			"--concurrency", "0",
			"--force-download",
		}))

		o := overridesFromFlags(fs, &f)
		assert.Equal(t, []string{"win-x64", "osx-x64"}, o.Platforms)
		require.NotNil(t, o.NwVersion)
		assert.Equal(t, "lts", *o.NwVersion)
		require.NotNil(t, o.Concurrency)
		assert.Zero(t, *o.Concurrency)
		require.NotNil(t, o.ForceDownload)
		assert.True(t, *o.ForceDownload)
		assert.Nil(t, o.CacheDir)
	})
}

func TestApplyLogLevel(t *testing.T) {
	t.Parallel()

	require.Error(t, applyLogLevel("loud"))
}
