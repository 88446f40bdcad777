// Package strategies bundles example strategy scripts that ship with the
// backtester.
package strategies

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed *.js
var scripts embed.FS

// Names lists the bundled strategies.
func Names() []string {
	entries, _ := fs.ReadDir(scripts, ".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".js"))
	}
	sort.Strings(names)
	return names
}

// Load returns the source of a bundled strategy by name, or reads ref from
// disk when it is not one.
func Load(ref string) (string, error) {
	name := strings.TrimSuffix(path.Base(ref), ".js")
	if ref == name || ref == name+".js" {
		if src, err := scripts.ReadFile(name + ".js"); err == nil {
			return string(src), nil
		}
	}
	src, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("load strategy %q: %w", ref, err)
	}
	return string(src), nil
}
