package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/nwjs-packager/internal/domain/target"
	"github.com/oshokin/nwjs-packager/internal/naming"
)

// OutputKind names a distributable produced from a finished app directory.
type OutputKind string

const (
	// OutputZip is a zip archive.
	OutputZip OutputKind = "zip"
	// OutputTarGz is a gzip-compressed tar archive.
	OutputTarGz OutputKind = "tar.gz"
	// OutputInnoSetup is a Windows installer compiled by Inno Setup.
	OutputInnoSetup OutputKind = "inno_setup"
)

const (
	// DefaultConfigFilename is the optional YAML file read from the app directory.
	DefaultConfigFilename = "nwjs-packager.yaml"

	// DefaultNwVersion is the runtime channel used when no version is configured.
	DefaultNwVersion = "stable"

	// DefaultInnoCompiler is where Inno Setup 5 installs its command-line compiler.
	DefaultInnoCompiler = "C:/Program Files (x86)/Inno Setup 5/ISCC.exe"

	// homeDirName is the per-user directory holding the cache and staging areas.
	homeDirName = ".nwjs-packager"
)

// OutputSpec is one enabled output for a platform.
type OutputSpec struct {
	// Kind selects the generator.
	Kind OutputKind `yaml:"kind"`
	// ScriptPath is an Inno Setup script; empty means the script is generated.
	ScriptPath string `yaml:"script,omitempty"`
}

// PackageOptions is the fully resolved configuration of a packaging run.
// It is built once by Resolve and treated as read-only afterwards.
type PackageOptions struct {
	// BaseDir is the app directory that file patterns are relative to.
	BaseDir string
	// Files are glob patterns selecting the app files; `!` excludes.
	Files []string
	// CacheDir stores downloaded runtime archives.
	CacheDir string
	// TempDir holds staging directories.
	TempDir string
	// OutputDir receives app directories and artifacts.
	OutputDir string

	// NwVersion is an explicit runtime version or a channel (stable, latest, lts).
	NwVersion string
	// NwFlavor selects the regular or SDK runtime build.
	NwFlavor target.Flavor
	// ForceDownload refetches runtime archives even when cached.
	ForceDownload bool

	// AppPackageName is the file-system friendly app id.
	AppPackageName string
	// AppVersion is the app version.
	AppVersion string
	// AppOutputName is the package name template (%a%, %v%, %p%).
	AppOutputName string
	// AppFriendlyName is the display name; it may contain spaces.
	AppFriendlyName string
	// AppDescription is used for Windows file description and macOS strings.
	AppDescription string
	// AppCopyright is used for Windows and macOS copyright fields.
	AppCopyright string
	// AppMacIcon is an optional .icns file.
	AppMacIcon string
	// AppWinIcon is an optional .ico file.
	AppWinIcon string
	// AppMacStringsDir optionally holds InfoPlist.strings templates (<locale>.strings, default.strings).
	AppMacStringsDir string

	// Platforms are the targets to package.
	Platforms []target.Target
	// Builds lists the enabled outputs per platform.
	Builds map[target.Platform][]OutputSpec
	// InstallDependencies runs `npm install --production` in the staging directory.
	InstallDependencies bool
	// Concurrency bounds how many targets are packaged at once; zero means no bound.
	Concurrency int

	// RceditPath switches Windows resource editing to the external rcedit tool.
	RceditPath string
	// InnoCompiler is the path to ISCC.exe.
	InnoCompiler string
}

// Overrides is one configuration layer. Nil pointers and empty slices leave
// the lower layer untouched. The same shape is read from the package.json
// block, the YAML file and command-line flags.
type Overrides struct {
	Files               []string                  `yaml:"files"`
	CacheDir            *string                   `yaml:"cacheDir"`
	TempDir             *string                   `yaml:"tempDir"`
	OutputDir           *string                   `yaml:"outputDir"`
	NwVersion           *string                   `yaml:"nwVersion"`
	NwFlavor            *string                   `yaml:"nwFlavor"`
	ForceDownload       *bool                     `yaml:"forceDownload"`
	AppPackageName      *string                   `yaml:"appPackageName"`
	AppVersion          *string                   `yaml:"appVersion"`
	AppOutputName       *string                   `yaml:"appOutputName"`
	AppFriendlyName     *string                   `yaml:"appFriendlyName"`
	AppDescription      *string                   `yaml:"appDescription"`
	AppCopyright        *string                   `yaml:"appCopyright"`
	AppMacIcon          *string                   `yaml:"appMacIcon"`
	AppWinIcon          *string                   `yaml:"appWinIcon"`
	AppMacStringsDir    *string                   `yaml:"appMacStrings"`
	Platforms           []string                  `yaml:"platforms"`
	Builds              map[string]map[string]any `yaml:"builds"`
	InstallDependencies *bool                     `yaml:"installDependencies"`
	Concurrency         *int                      `yaml:"concurrency"`
	Rcedit              *string                   `yaml:"rcedit"`
	InnoCompiler        *string                   `yaml:"innoCompiler"`
}

// ResolveInput describes where the layers come from.
type ResolveInput struct {
	// BaseDir is the app directory containing package.json. Defaults to the working directory.
	BaseDir string
	// ConfigPath is an optional YAML file. When empty, DefaultConfigFilename is read if present.
	ConfigPath string
	// Flags is the command-line layer.
	Flags Overrides
	// Now supplies the copyright year. Defaults to time.Now.
	Now func() time.Time
}

// Resolve builds and validates PackageOptions from every configuration layer.
func Resolve(in ResolveInput) (*PackageOptions, error) {
	baseDir := in.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fieldError("baseDir", err)
		}

		baseDir = wd
	}

	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fieldError("baseDir", err)
	}

	manifest, err := ReadManifest(filepath.Join(baseDir, ManifestFilename))
	if err != nil {
		return nil, err
	}

	now := in.Now
	if now == nil {
		now = time.Now
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = baseDir
	}

	opts := Defaults(manifest, baseDir, home, now())

	fileLayer, err := loadFileLayer(baseDir, in.ConfigPath)
	if err != nil {
		return nil, err
	}

	for _, layer := range []*Overrides{&manifest.Block, fileLayer, &in.Flags} {
		if layer == nil {
			continue
		}

		if err = opts.apply(layer); err != nil {
			return nil, err
		}
	}

	opts.absolutize()

	if err = Validate(opts); err != nil {
		return nil, err
	}

	return opts, nil
}

// Defaults returns the built-in layer derived from package.json identity fields.
func Defaults(manifest *Manifest, baseDir, home string, now time.Time) *PackageOptions {
	host, err := target.Host()

	var platforms []target.Target
	if err == nil {
		platforms = []target.Target{host}
	}

	copyright := ""
	if manifest.Author != "" {
		copyright = fmt.Sprintf("© %d %s", now.Year(), manifest.Author)
	}

	return &PackageOptions{
		BaseDir:         baseDir,
		CacheDir:        filepath.Join(home, homeDirName, "cache"),
		TempDir:         filepath.Join(home, homeDirName, "temp"),
		OutputDir:       filepath.Join(baseDir, "build"),
		NwVersion:       DefaultNwVersion,
		NwFlavor:        target.FlavorNormal,
		AppPackageName:  manifest.Name,
		AppVersion:      manifest.Version,
		AppOutputName:   naming.DefaultTemplate,
		AppFriendlyName: FriendlyName(manifest.Name),
		AppDescription:  manifest.Description,
		AppCopyright:    copyright,
		Platforms:       platforms,
		Builds: map[target.Platform][]OutputSpec{
			target.Linux:   {{Kind: OutputTarGz}},
			target.MacOS:   {{Kind: OutputZip}},
			target.Windows: {{Kind: OutputZip}},
		},
		InstallDependencies: true,
		InnoCompiler:        DefaultInnoCompiler,
	}
}

// FriendlyName turns an npm package name into a title-cased display name
// ("my-cool_app" becomes "My Cool App").
func FriendlyName(packageName string) string {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(packageName)

	return cases.Title(language.English).String(spaced)
}

// LoadFile reads one YAML layer.
func LoadFile(path string) (*Overrides, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fieldError("config", fmt.Errorf("read settings: %w", err))
	}

	var layer Overrides
	if err = yaml.Unmarshal(contents, &layer); err != nil {
		return nil, fieldError("config", fmt.Errorf("unmarshal settings: %w", err))
	}

	return &layer, nil
}

// loadFileLayer reads the explicit config file, or the default one when it exists.
func loadFileLayer(baseDir, path string) (*Overrides, error) {
	if path != "" {
		return LoadFile(path)
	}

	path = filepath.Join(baseDir, DefaultConfigFilename)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // Absence of the optional file is not an error.
	}

	return LoadFile(path)
}

// apply copies every value set in layer over o.
//
//nolint:cyclop,funlen // Flat field-by-field merge reads better than reflection.
func (o *PackageOptions) apply(layer *Overrides) error {
	if len(layer.Files) > 0 {
		o.Files = slices.Clone(layer.Files)
	}

	setString(&o.CacheDir, layer.CacheDir)
	setString(&o.TempDir, layer.TempDir)
	setString(&o.OutputDir, layer.OutputDir)
	setString(&o.NwVersion, layer.NwVersion)
	setString(&o.AppPackageName, layer.AppPackageName)
	setString(&o.AppVersion, layer.AppVersion)
	setString(&o.AppOutputName, layer.AppOutputName)
	setString(&o.AppFriendlyName, layer.AppFriendlyName)
	setString(&o.AppDescription, layer.AppDescription)
	setString(&o.AppCopyright, layer.AppCopyright)
	setString(&o.AppMacIcon, layer.AppMacIcon)
	setString(&o.AppWinIcon, layer.AppWinIcon)
	setString(&o.AppMacStringsDir, layer.AppMacStringsDir)
	setString(&o.RceditPath, layer.Rcedit)
	setString(&o.InnoCompiler, layer.InnoCompiler)

	if layer.NwFlavor != nil {
		flavor, err := target.ParseFlavor(*layer.NwFlavor)
		if err != nil {
			return fieldError("nwFlavor", err)
		}

		o.NwFlavor = flavor
	}

	if layer.ForceDownload != nil {
		o.ForceDownload = *layer.ForceDownload
	}

	if layer.InstallDependencies != nil {
		o.InstallDependencies = *layer.InstallDependencies
	}

	if layer.Concurrency != nil {
		o.Concurrency = *layer.Concurrency
	}

	if len(layer.Platforms) > 0 {
		platforms, err := target.ParseList(layer.Platforms)
		if err != nil {
			return fieldError("platforms", err)
		}

		o.Platforms = platforms
	}

	// Builds merge per platform: a layer replaces the outputs of the platforms it names only.
	for platformName, outputs := range layer.Builds {
		platform := target.Platform(strings.ToLower(platformName))
		if !platform.Valid() {
			return fieldError("builds", fmt.Errorf("%w: %q", target.ErrUnknownPlatform, platformName))
		}

		specs, err := parseOutputs(platform, outputs)
		if err != nil {
			return err
		}

		o.Builds[platform] = specs
	}

	return nil
}

// parseOutputs converts one platform's `{"zip": true, "innoSetup": "setup.iss"}` table.
// Keys are sorted so the output order is stable.
func parseOutputs(platform target.Platform, outputs map[string]any) ([]OutputSpec, error) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}

	slices.Sort(names)

	specs := make([]OutputSpec, 0, len(names))

	for _, name := range names {
		field := fmt.Sprintf("builds.%s.%s", platform, name)

		kind, err := parseOutputKind(name)
		if err != nil {
			return nil, fieldError(field, err)
		}

		if kind == OutputInnoSetup && platform != target.Windows {
			return nil, fieldError(field, fmt.Errorf("%w: inno_setup is only available for win", ErrUnknownOutput))
		}

		switch value := outputs[name].(type) {
		case bool:
			if value {
				specs = append(specs, OutputSpec{Kind: kind})
			}
		case string:
			if kind != OutputInnoSetup || value == "" {
				return nil, fieldError(field, ErrInvalidOutputValue)
			}

			specs = append(specs, OutputSpec{Kind: kind, ScriptPath: value})
		default:
			return nil, fieldError(field, ErrInvalidOutputValue)
		}
	}

	return specs, nil
}

func parseOutputKind(name string) (OutputKind, error) {
	switch strings.ToLower(name) {
	case "zip":
		return OutputZip, nil
	case "tar.gz", "tgz":
		return OutputTarGz, nil
	case "innosetup", "inno_setup", "inno":
		return OutputInnoSetup, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
}

// absolutize anchors relative paths at BaseDir.
func (o *PackageOptions) absolutize() {
	for _, p := range []*string{
		&o.CacheDir, &o.TempDir, &o.OutputDir,
		&o.AppMacIcon, &o.AppWinIcon, &o.AppMacStringsDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(o.BaseDir, *p)
		}
	}

	for platform, specs := range o.Builds {
		for i := range specs {
			if specs[i].ScriptPath != "" && !filepath.IsAbs(specs[i].ScriptPath) {
				specs[i].ScriptPath = filepath.Join(o.BaseDir, specs[i].ScriptPath)
			}
		}

		o.Builds[platform] = specs
	}
}

// Outputs returns the enabled outputs for a platform.
func (o *PackageOptions) Outputs(platform target.Platform) []OutputSpec {
	return o.Builds[platform]
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}
