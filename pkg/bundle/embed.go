package bundle

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

// DefaultName is the bundle served when no bundle path is configured.
const DefaultName = "vision-glass"

//go:embed assets/*.json
var assetFS embed.FS

// Default returns the embedded vision-health bundle shipped in the binary.
func Default() (*Bundle, error) {
	return Embedded(DefaultName)
}

// Embedded loads one of the bundles compiled into the binary by name.
func Embedded(name string) (*Bundle, error) {
	entries, err := assetFS.ReadDir("assets")
	if err != nil {
		return nil, &LoadError{Path: "embedded:" + name, Err: err}
	}

	for _, e := range entries {
		data, err := assetFS.ReadFile("assets/" + e.Name())
		if err != nil {
			return nil, &LoadError{Path: "embedded:" + name, Err: err}
		}
		b, err := Parse(data, "embedded:"+strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if b.Name == name {
			return b, nil
		}
	}

	return nil, &LoadError{
		Path: "embedded:" + name,
		Err:  fmt.Errorf("no embedded bundle named %s (have: %s)", name, strings.Join(EmbeddedNames(), ", ")),
	}
}

// EmbeddedNames lists the bundles compiled into the binary.
func EmbeddedNames() []string {
	entries, err := assetFS.ReadDir("assets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		data, err := assetFS.ReadFile("assets/" + e.Name())
		if err != nil {
			continue
		}
		if b, err := Parse(data, e.Name()); err == nil {
			names = append(names, b.Name)
		}
	}
	sort.Strings(names)
	return names
}
