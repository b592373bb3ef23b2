// Package runtimetest provides a Downloader that fabricates small runtime
// distributions on disk, for tests of code that consumes runtimes.
package runtimetest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"howett.net/plist"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/runtime"
)

// RuntimeBytes is the content of every fake runtime executable.
const RuntimeBytes = "FAKE-NWJS-RUNTIME"

// HelperSuffixes are the macOS helper bundles created by the fake.
//
//nolint:gochecknoglobals // Test fixture.
var HelperSuffixes = []string{" Helper", " Helper (GPU)", " Helper (Renderer)"}

// Downloader builds fake distributions under Root and counts calls.
type Downloader struct {
	// Root holds the fabricated distributions.
	Root string
	// Fail maps target tags to the error returned for them.
	Fail map[string]error

	calls atomic.Int32
	mu    sync.Mutex
	keys  map[string]int
}

// New creates a fake downloader rooted at root.
func New(root string) *Downloader {
	return &Downloader{
		Root: root,
		Fail: make(map[string]error),
		keys: make(map[string]int),
	}
}

// Calls returns how many times Get ran.
func (d *Downloader) Calls() int {
	return int(d.calls.Load())
}

// CallsFor returns how many times Get ran for a request key.
func (d *Downloader) CallsFor(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.keys[key]
}

// Get implements runtime.Downloader.
func (d *Downloader) Get(_ context.Context, req runtime.Request) (string, error) {
	d.calls.Add(1)

	d.mu.Lock()
	d.keys[req.Key()]++
	d.mu.Unlock()

	if err, ok := d.Fail[req.Target.String()]; ok {
		return "", &runtime.DownloadError{Key: req.Key(), Err: err}
	}

	dir := filepath.Join(d.Root, req.Target.RuntimeDistName(req.Version, req.Flavor))
	if err := Build(dir, req.Target.Platform); err != nil {
		return "", &runtime.DownloadError{Key: req.Key(), Err: err}
	}

	return dir, nil
}

var errUnknownPlatform = errors.New("unknown platform")

// Build writes a minimal distribution for platform into dir.
func Build(dir string, platform target.Platform) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}

	files := map[string]string{
		"credits.html": "credits",
		"icudtl.dat":   "icu",
	}

	switch platform {
	case target.Windows:
		files["nw.exe"] = RuntimeBytes
		files["nw.dll"] = "dll"
	case target.Linux:
		files["nw"] = RuntimeBytes
		files["lib/libffmpeg.so"] = "ffmpeg"
	case target.MacOS:
		files["nwjs.app/Contents/MacOS/nwjs"] = RuntimeBytes
		files["nwjs.app/Contents/Resources/app.icns"] = "icon"
		files["nwjs.app/Contents/Resources/en.lproj/InfoPlist.strings"] = `CFBundleName = "nwjs";`

		plists := map[string]string{"nwjs.app/Contents/Info.plist": target.RuntimeName}

		for _, suffix := range HelperSuffixes {
			helper := "nwjs.app/Contents/Frameworks/nwjs Framework.framework/Helpers/nwjs" + suffix + ".app"
			files[helper+"/Contents/MacOS/nwjs"+suffix] = RuntimeBytes
			plists[helper+"/Contents/Info.plist"] = target.RuntimeName + suffix
		}

		for rel, name := range plists {
			contents, err := plist.MarshalIndent(map[string]any{
				"CFBundleName":       name,
				"CFBundleExecutable": name,
			}, plist.XMLFormat, "\t")
			if err != nil {
				return err
			}

			files[rel] = string(contents)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownPlatform, platform)
	}

	for rel, contents := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}

		if err := os.WriteFile(p, []byte(contents), 0o755); err != nil { //nolint:gosec // Executables in a fake runtime.
			return err
		}
	}

	return nil
}
