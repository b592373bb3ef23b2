package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/oshokin/nwjs-packager/internal/archive"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/version"
)

const (
	// DefaultBaseURL is the NW.js download mirror.
	DefaultBaseURL = "https://dl.nwjs.io"
	// DefaultVersionsURL lists the versions behind each release channel.
	DefaultVersionsURL = "https://nwjs.io/versions.json"

	// completeSuffix names the marker written next to an extracted distribution once extraction finished.
	completeSuffix = ".complete"
)

var (
	errBadHTTPStatus   = errors.New("unexpected http status")
	errUnknownChannel  = errors.New("release channel not listed in versions.json")
	errUnsupportedHost = errors.New("unsupported download URL scheme")
)

// HTTPDownloader fetches runtime archives from the NW.js mirror.
type HTTPDownloader struct {
	baseURL     string
	versionsURL string
	client      *http.Client
	// dists coalesces requests that resolve to the same extracted distribution,
	// e.g. "stable" and the version it currently points to.
	dists singleflight.Group
}

// HTTPOption configures an HTTPDownloader.
type HTTPOption func(*HTTPDownloader)

// WithBaseURL points the downloader at a different mirror.
func WithBaseURL(baseURL string) HTTPOption {
	return func(d *HTTPDownloader) {
		if baseURL != "" {
			d.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithVersionsURL overrides where release channels are resolved.
func WithVersionsURL(versionsURL string) HTTPOption {
	return func(d *HTTPDownloader) {
		if versionsURL != "" {
			d.versionsURL = versionsURL
		}
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDownloader) {
		if client != nil {
			d.client = client
		}
	}
}

// NewHTTPDownloader creates a downloader for the public NW.js mirror.
func NewHTTPDownloader(opts ...HTTPOption) *HTTPDownloader {
	d := &HTTPDownloader{
		baseURL:     DefaultBaseURL,
		versionsURL: DefaultVersionsURL,
		client:      http.DefaultClient,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Get implements Downloader. The returned directory is the extracted
// distribution root, e.g. <cache>/nwjs-v0.44.5-win-x64.
func (d *HTTPDownloader) Get(ctx context.Context, req Request) (string, error) {
	dir, err := d.get(ctx, req)
	if err != nil {
		return "", &DownloadError{Key: req.Key(), Err: err}
	}

	return dir, nil
}

func (d *HTTPDownloader) get(ctx context.Context, req Request) (string, error) {
	resolved, err := d.ResolveVersion(ctx, req.Version)
	if err != nil {
		return "", err
	}

	var (
		distName    = req.Target.RuntimeDistName(resolved, req.Flavor)
		archiveName = req.Target.RuntimeArchiveName(resolved, req.Flavor)
		archivePath = filepath.Join(req.CacheDir, archiveName)
		extractDir  = filepath.Join(req.CacheDir, distName)
	)

	ctx = logger.WithKV(ctx, "runtime", distName)

	_, err, _ = d.dists.Do(extractDir, func() (any, error) {
		return nil, d.fetchDist(ctx, req, resolved, archivePath, distName, extractDir)
	})
	if err != nil {
		return "", err
	}

	return extractDir, nil
}

// fetchDist makes sure extractDir holds the distribution, downloading and
// extracting the archive when it is missing or a refresh is forced.
func (d *HTTPDownloader) fetchDist(ctx context.Context, req Request, resolved, archivePath, distName, extractDir string) error {
	if !req.Force && fsutil.Exists(extractDir+completeSuffix) {
		logger.Debug(ctx, "Using cached runtime")

		return nil
	}

	if err := os.MkdirAll(req.CacheDir, fsutil.DirMode); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if req.Force || !fsutil.Exists(archivePath) {
		fileURL, err := d.archiveURL(resolved, filepath.Base(archivePath))
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Downloading runtime", "url", fileURL)

		if err = d.download(ctx, fileURL, archivePath); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Extracting runtime", "archive", archivePath)

	return extractInto(archivePath, req.CacheDir, distName, extractDir)
}

// ResolveVersion turns a channel name into a concrete version and strips any "v" prefix.
func (d *HTTPDownloader) ResolveVersion(ctx context.Context, requested string) (string, error) {
	channel := strings.ToLower(strings.TrimSpace(requested))

	switch channel {
	case "stable", "latest", "lts":
	default:
		return NormalizeVersion(channel), nil
	}

	body, err := d.fetch(ctx, d.versionsURL)
	if err != nil {
		return "", fmt.Errorf("resolve %s version: %w", channel, err)
	}

	resolved := gjson.GetBytes(body, channel).String()
	if resolved == "" {
		return "", fmt.Errorf("%w: %s", errUnknownChannel, channel)
	}

	logger.DebugKV(ctx, "Resolved runtime channel", "channel", channel, "version", resolved)

	return strings.TrimPrefix(resolved, "v"), nil
}

func (d *HTTPDownloader) archiveURL(resolved, archiveName string) (string, error) {
	base, err := url.Parse(d.baseURL)
	if err != nil {
		return "", err
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("%w: %s", errUnsupportedHost, d.baseURL)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	base.Path = path.Join(base.Path, "v"+resolved, archiveName)

	return base.String(), nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	response, err := d.open(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	return io.ReadAll(response.Body)
}

func (d *HTTPDownloader) open(ctx context.Context, fileURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", fileURL, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// download streams fileURL into a temporary file next to dst and renames it into place.
func (d *HTTPDownloader) download(ctx context.Context, fileURL, dst string) (err error) {
	response, err := d.open(ctx, fileURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, response.Body); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("download %s: %w", fileURL, err)
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}

// extractInto unpacks archivePath in a scratch directory and moves the
// distribution to extractDir, so a half-extracted tree is never visible.
func extractInto(archivePath, cacheDir, distName, extractDir string) (err error) {
	scratch, err := os.MkdirTemp(cacheDir, ".extract-*")
	if err != nil {
		return err
	}

	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	if err = archive.Extract(archivePath, scratch); err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(archivePath), err)
	}

	source := filepath.Join(scratch, distName)
	if !fsutil.Exists(source) {
		source = scratch
	}

	_ = os.Remove(extractDir + completeSuffix)

	if err = os.RemoveAll(extractDir); err != nil {
		return err
	}

	if err = os.Rename(source, extractDir); err != nil {
		return err
	}

	return os.WriteFile(extractDir+completeSuffix, nil, 0o600)
}
