package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks resolved options for required fields and formatting.
func Validate(o *PackageOptions) error {
	required := []struct {
		field string
		value string
	}{
		{"appPackageName", o.AppPackageName},
		{"appVersion", o.AppVersion},
		{"appOutputName", o.AppOutputName},
		{"appFriendlyName", o.AppFriendlyName},
		{"nwVersion", o.NwVersion},
		{"outputDir", o.OutputDir},
		{"cacheDir", o.CacheDir},
		{"tempDir", o.TempDir},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fieldError(r.field, ErrEmptyValue)
		}
	}

	if strings.ContainsAny(o.AppPackageName, `/\`) {
		return fieldError("appPackageName", ErrPathSeparator)
	}

	if !o.NwFlavor.Valid() {
		return fieldError("nwFlavor", fmt.Errorf("%q is not normal or sdk", o.NwFlavor))
	}

	if len(o.Files) == 0 {
		return fieldError("files", fmt.Errorf("no files were selected: %w", ErrEmptyValue))
	}

	if len(o.Platforms) == 0 {
		return fieldError("platforms", ErrEmptyValue)
	}

	for _, t := range o.Platforms {
		if err := t.Validate(); err != nil {
			return fieldError("platforms", err)
		}
	}

	if o.Concurrency < 0 {
		return fieldError("concurrency", ErrNegative)
	}

	for field, path := range map[string]string{
		"appMacIcon":    o.AppMacIcon,
		"appWinIcon":    o.AppWinIcon,
		"appMacStrings": o.AppMacStringsDir,
	} {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); err != nil {
			return fieldError(field, err)
		}
	}

	for platform, specs := range o.Builds {
		for _, spec := range specs {
			if spec.ScriptPath == "" {
				continue
			}

			if _, err := os.Stat(spec.ScriptPath); err != nil {
				return fieldError(fmt.Sprintf("builds.%s.%s", platform, spec.Kind), err)
			}
		}
	}

	return nil
}
