package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParse covers tag and nw-builder style names.
func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]Target{
		"osx-x64":    {Platform: MacOS, Arch: X64},
		"win-ia32":   {Platform: Windows, Arch: IA32},
		" LINUX-x64": {Platform: Linux, Arch: X64},
		"win32":      {Platform: Windows, Arch: IA32},
		"linux64":    {Platform: Linux, Arch: X64},
		"osx":        {Platform: MacOS, Arch: X64},
	}

	for input, want := range cases {
		got, err := Parse(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := Parse("osx-arm64")
	require.ErrorIs(t, err, ErrUnknownArch)

	_, err = Parse("beos-x64")
	require.ErrorIs(t, err, ErrUnknownPlatform)

	_, err = Parse("solaris")
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

// TestParseListDeduplicates keeps the first occurrence of each target.
func TestParseListDeduplicates(t *testing.T) {
	t.Parallel()

	got, err := ParseList([]string{"osx-x64", "win64", "osx64", "win-x64"})
	require.NoError(t, err)
	require.Equal(t, []Target{{MacOS, X64}, {Windows, X64}}, got)
}

// TestRuntimeNames checks the naming convention of runtime archives.
func TestRuntimeNames(t *testing.T) {
	t.Parallel()

	linux := Target{Platform: Linux, Arch: IA32}
	require.Equal(t, "nwjs-sdk-v0.28.1-linux-ia32.tar.gz", linux.RuntimeArchiveName("0.28.1", FlavorSDK))

	win := Target{Platform: Windows, Arch: X64}
	require.Equal(t, "nwjs-v0.41.1-win-x64.zip", win.RuntimeArchiveName("v0.41.1", FlavorNormal))
	require.Equal(t, "nwjs-v0.41.1-win-x64", win.RuntimeDistName("v0.41.1", FlavorNormal))
}

// TestLayout checks per-platform executable and payload locations.
func TestLayout(t *testing.T) {
	t.Parallel()

	require.Equal(t, "nwjs.app/Contents/MacOS/nwjs", MacOS.RuntimeExecutable())
	require.Equal(t, "nw.exe", Windows.RuntimeExecutable())
	require.Equal(t, "nw", Linux.RuntimeExecutable())

	require.False(t, MacOS.PayloadIsArchive())
	require.Equal(t, "nwjs.app/Contents/Resources/app.nw", MacOS.PayloadPath())
	require.Equal(t, "package.nw", Linux.PayloadPath())

	require.Equal(t, "demo.exe", Windows.AppExecutable("demo"))
	require.Equal(t, "demo.app", MacOS.AppExecutable("demo"))
	require.Equal(t, "demo", Linux.AppExecutable("demo"))
}

// TestAllAndFlavor checks the enumeration size and flavor parsing.
func TestAllAndFlavor(t *testing.T) {
	t.Parallel()

	require.Len(t, All(), 6)

	f, err := ParseFlavor("SDK")
	require.NoError(t, err)
	require.Equal(t, FlavorSDK, f)

	_, err = ParseFlavor("debug")
	require.ErrorIs(t, err, ErrUnknownFlavor)
}
