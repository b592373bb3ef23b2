package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/nwjs-packager/internal/archive"
	"github.com/oshokin/nwjs-packager/internal/domain/target"
)

// mirror serves versions.json and one linux runtime archive.
func mirror(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	linux := target.Target{Platform: target.Linux, Arch: target.X64}
	distName := linux.RuntimeDistName("0.44.5", target.FlavorNormal)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "nw"), []byte("runtime-binary"), 0o755))

	archivePath := filepath.Join(t.TempDir(), distName+".tar.gz")
	require.NoError(t, archive.Write(archive.TarGz, archivePath, src, distName))

	var downloads atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/versions.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"latest":"v0.45.0","stable":"v0.44.5","lts":"v0.14.7"}`))
	})
	mux.HandleFunc("/v0.44.5/"+distName+".tar.gz", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		http.ServeFile(w, r, archivePath)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &downloads
}

// TestHTTPDownloader_ResolvesChannelAndCaches downloads once and reuses the extracted tree.
func TestHTTPDownloader_ResolvesChannelAndCaches(t *testing.T) {
	t.Parallel()

	server, downloads := mirror(t)

	d := NewHTTPDownloader(
		WithBaseURL(server.URL+"/"),
		WithVersionsURL(server.URL+"/versions.json"),
		WithHTTPClient(server.Client()),
	)

	req := Request{
		Version:  "stable",
		Flavor:   target.FlavorNormal,
		Target:   target.Target{Platform: target.Linux, Arch: target.X64},
		CacheDir: t.TempDir(),
	}

	dir, err := d.Get(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(req.CacheDir, "nwjs-v0.44.5-linux-x64"), dir)

	contents, err := os.ReadFile(filepath.Join(dir, "nw"))
	require.NoError(t, err)
	require.Equal(t, "runtime-binary", string(contents))

	again, err := d.Get(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, dir, again)
	require.Equal(t, int32(1), downloads.Load())

	req.Force = true
	_, err = d.Get(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int32(2), downloads.Load())
}

// TestHTTPDownloader_AliasesShareOneDistribution requests one distribution by
// channel and by both version spellings at once.
func TestHTTPDownloader_AliasesShareOneDistribution(t *testing.T) {
	t.Parallel()

	server, downloads := mirror(t)

	d := NewHTTPDownloader(
		WithBaseURL(server.URL),
		WithVersionsURL(server.URL+"/versions.json"),
		WithHTTPClient(server.Client()),
	)

	var (
		cacheDir = t.TempDir()
		versions = []string{"stable", "0.44.5", "v0.44.5", "stable", "0.44.5", "v0.44.5"}
		dirs     = make([]string, len(versions))
		errs     = make([]error, len(versions))
		wg       sync.WaitGroup
	)

	for i, version := range versions {
		i, version := i, version

		wg.Add(1)

		go func() {
			defer wg.Done()

			dirs[i], errs[i] = d.Get(context.Background(), Request{
				Version:  version,
				Flavor:   target.FlavorNormal,
				Target:   target.Target{Platform: target.Linux, Arch: target.X64},
				CacheDir: cacheDir,
			})
		}()
	}

	wg.Wait()

	for i := range versions {
		require.NoError(t, errs[i], versions[i])
		require.Equal(t, filepath.Join(cacheDir, "nwjs-v0.44.5-linux-x64"), dirs[i])
	}

	require.Equal(t, int32(1), downloads.Load())
}

// TestRequestKey_NormalizesVersion treats "v"-prefixed and bare versions as one key.
func TestRequestKey_NormalizesVersion(t *testing.T) {
	t.Parallel()

	req := Request{
		Version:  "v0.44.5",
		Flavor:   target.FlavorNormal,
		Target:   target.Target{Platform: target.Windows, Arch: target.X64},
		CacheDir: "/cache",
	}

	bare := req
	bare.Version = " 0.44.5"

	require.Equal(t, req.Key(), bare.Key())

	channel := req
	channel.Version = "stable"

	require.NotEqual(t, req.Key(), channel.Key())
}

// TestHTTPDownloader_MissingArchive wraps HTTP failures in DownloadError.
func TestHTTPDownloader_MissingArchive(t *testing.T) {
	t.Parallel()

	server, _ := mirror(t)

	d := NewHTTPDownloader(WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	_, err := d.Get(context.Background(), Request{
		Version:  "v0.1.0",
		Flavor:   target.FlavorSDK,
		Target:   target.Target{Platform: target.Windows, Arch: target.IA32},
		CacheDir: t.TempDir(),
	})

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestResolveVersion strips prefixes and rejects unknown channels.
func TestResolveVersion(t *testing.T) {
	t.Parallel()

	server, _ := mirror(t)
	d := NewHTTPDownloader(WithVersionsURL(server.URL+"/versions.json"), WithHTTPClient(server.Client()))

	v, err := d.ResolveVersion(context.Background(), "v0.50.1")
	require.NoError(t, err)
	require.Equal(t, "0.50.1", v)

	v, err = d.ResolveVersion(context.Background(), "LTS")
	require.NoError(t, err)
	require.Equal(t, "0.14.7", v)

	broken := NewHTTPDownloader(WithVersionsURL(server.URL+"/missing.json"), WithHTTPClient(server.Client()))
	_, err = broken.ResolveVersion(context.Background(), "latest")
	require.ErrorIs(t, err, errBadHTTPStatus)
}
