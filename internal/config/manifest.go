package config

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFilename is the app manifest every NW.js app carries.
	ManifestFilename = "package.json"

	// BlockKey is the package.json key holding packager options.
	BlockKey = "nwjs-packager"
)

// Manifest is the subset of package.json the packager reads.
type Manifest struct {
	// Name is the npm package name.
	Name string
	// Version is the npm package version.
	Version string
	// Description is the package description.
	Description string
	// Author is the author name, flattened from either string or object form.
	Author string
	// Block holds the decoded "nwjs-packager" options.
	Block Overrides
}

// ReadManifest loads package.json from path.
func ReadManifest(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fieldError(ManifestFilename, err)
	}

	return ParseManifest(contents)
}

// ParseManifest extracts identity fields and the packager block from package.json contents.
func ParseManifest(contents []byte) (*Manifest, error) {
	if !gjson.ValidBytes(contents) {
		return nil, fieldError(ManifestFilename, ErrInvalidJSON)
	}

	doc := gjson.ParseBytes(contents)

	manifest := &Manifest{
		Name:        doc.Get("name").String(),
		Version:     doc.Get("version").String(),
		Description: doc.Get("description").String(),
		Author:      authorName(doc.Get("author")),
	}

	block := doc.Get(BlockKey)
	if !block.Exists() || !block.IsObject() {
		return nil, fieldError(BlockKey, ErrMissingBlock)
	}

	// JSON is a subset of YAML, so the block shares the decoder used for the YAML file.
	if err := yaml.Unmarshal([]byte(block.Raw), &manifest.Block); err != nil {
		return nil, fieldError(BlockKey, err)
	}

	return manifest, nil
}

// authorName accepts both `"author": "Name <mail>"` and `"author": {"name": "Name"}`.
func authorName(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("name").String()
	}

	return v.String()
}
