package naming

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// TestRender covers the default template, repeated tokens and unknown tokens.
func TestRender(t *testing.T) {
	t.Parallel()

	osx := target.Target{Platform: target.MacOS, Arch: target.X64}

	cases := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "default", tmpl: DefaultTemplate, want: "demo-1.0.0-osx-x64"},
		{name: "repeated", tmpl: "%a%/%a%-%v%", want: "demo/demo-1.0.0"},
		{name: "unknown token kept", tmpl: "%a%-%x%-%p%", want: "demo-%x%-osx-x64"},
		{name: "no tokens", tmpl: "release", want: "release"},
		{name: "unterminated", tmpl: "%a%-%v", want: "demo-%v"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Render(tc.tmpl, "demo", "1.0.0", osx), tc.name)
	}
}

// TestRenderIsPure renders the same inputs twice and expects identical output.
func TestRenderIsPure(t *testing.T) {
	t.Parallel()

	win := target.Target{Platform: target.Windows, Arch: target.IA32}

	first := Render(DefaultTemplate, "app", "2.0.0", win)
	second := Render(DefaultTemplate, "app", "2.0.0", win)

	require.Equal(t, first, second)
	require.Equal(t, "app-2.0.0-win-ia32", first)
	require.True(t, HasPlatformToken(DefaultTemplate))
	require.False(t, HasPlatformToken("%a%-%v%"))
}
