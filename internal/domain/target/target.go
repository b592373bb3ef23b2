package target

import (
	"errors"
	"fmt"
	goruntime "runtime"
	"strings"
)

// Platform is an NW.js platform name.
type Platform string

// Arch is an NW.js architecture name.
type Arch string

// Flavor selects the regular or the SDK (devtools enabled) runtime build.
type Flavor string

const (
	// MacOS is the NW.js name for darwin.
	MacOS Platform = "osx"
	// Windows is the NW.js name for win32.
	Windows Platform = "win"
	// Linux is the NW.js name for linux.
	Linux Platform = "linux"

	// X64 is a 64-bit build.
	X64 Arch = "x64"
	// IA32 is a 32-bit build.
	IA32 Arch = "ia32"

	// FlavorNormal is the regular runtime build.
	FlavorNormal Flavor = "normal"
	// FlavorSDK is the runtime build with devtools.
	FlavorSDK Flavor = "sdk"
)

var (
	// ErrUnknownPlatform is returned for platform names outside the enumeration.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrUnknownArch is returned for architecture names outside the enumeration.
	ErrUnknownArch = errors.New("unknown architecture")
	// ErrUnknownFlavor is returned for flavors other than normal and sdk.
	ErrUnknownFlavor = errors.New("unknown runtime flavor")
)

// Target is a (platform, architecture) pair.
type Target struct {
	Platform Platform
	Arch     Arch
}

// String renders the target as the `<platform>-<arch>` tag used in file names.
func (t Target) String() string {
	return string(t.Platform) + "-" + string(t.Arch)
}

// Validate checks both halves of the pair against the enumeration.
func (t Target) Validate() error {
	if !t.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, t.Platform)
	}

	if !t.Arch.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownArch, t.Arch)
	}

	return nil
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case MacOS, Windows, Linux:
		return true
	default:
		return false
	}
}

// Valid reports whether a is one of the supported architectures.
func (a Arch) Valid() bool {
	return a == X64 || a == IA32
}

// Valid reports whether f is one of the supported flavors.
func (f Flavor) Valid() bool {
	return f == FlavorNormal || f == FlavorSDK
}

// ParseFlavor converts a configuration value into a Flavor.
func ParseFlavor(s string) (Flavor, error) {
	f := Flavor(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFlavor, s)
	}

	return f, nil
}

// All returns every supported target.
func All() []Target {
	platforms := []Platform{MacOS, Windows, Linux}
	arches := []Arch{X64, IA32}

	result := make([]Target, 0, len(platforms)*len(arches))

	for _, p := range platforms {
		for _, a := range arches {
			result = append(result, Target{Platform: p, Arch: a})
		}
	}

	return result
}

// Parse accepts `osx-x64` style tags as well as nw-builder names such as `win32` and `linux64`.
func Parse(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if platform, arch, found := strings.Cut(s, "-"); found {
		t := Target{Platform: Platform(platform), Arch: Arch(arch)}

		return t, t.Validate()
	}

	for _, p := range []Platform{MacOS, Windows, Linux} {
		suffix, ok := strings.CutPrefix(s, string(p))
		if !ok {
			continue
		}

		switch suffix {
		case "64":
			return Target{Platform: p, Arch: X64}, nil
		case "32":
			return Target{Platform: p, Arch: IA32}, nil
		case "":
			return Target{Platform: p, Arch: X64}, nil
		}
	}

	return Target{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// ParseList parses every entry and drops duplicates while keeping the first-seen order.
func ParseList(values []string) ([]Target, error) {
	var (
		result = make([]Target, 0, len(values))
		seen   = make(map[Target]struct{}, len(values))
	)

	for _, v := range values {
		t, err := Parse(v)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[t]; dup {
			continue
		}

		seen[t] = struct{}{}
		result = append(result, t)
	}

	return result, nil
}

// Host returns the target matching the machine the packager runs on.
func Host() (Target, error) {
	platform, err := PlatformFromGOOS(goruntime.GOOS)
	if err != nil {
		return Target{}, err
	}

	arch := X64
	if goruntime.GOARCH == "386" || goruntime.GOARCH == "arm" {
		arch = IA32
	}

	return Target{Platform: platform, Arch: arch}, nil
}

// PlatformFromGOOS converts a Go operating system name into an NW.js platform.
func PlatformFromGOOS(goos string) (Platform, error) {
	switch goos {
	case "darwin":
		return MacOS, nil
	case "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	default:
		return "", fmt.Errorf("%s is not a valid NW.js platform: %w", goos, ErrUnknownPlatform)
	}
}
