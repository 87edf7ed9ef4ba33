package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sprucekit/spruce/internal/inventory"
)

// LegacyItem is one line of the historical plain-text removal list: a
// bare filename with only an extension-derived type guess.
//
// Deprecated: the plain-text format cannot disambiguate same-named
// objects and is unsafe for anything but packages and scripts. Use the
// interchange document instead.
type LegacyItem struct {
	Name string
	Type inventory.ObjectType
}

// ParseLegacyList reads the historical one-filename-per-line removal
// format. Blank lines and lines starting with '#', a space, or a tab
// are ignored. Names ending in a package extension are treated as
// packages; everything else is assumed to be a script, exactly as the
// original workflow did.
//
// Deprecated: see LegacyItem. Retained because report files from old
// runs are still in circulation.
func ParseLegacyList(r io.Reader) ([]LegacyItem, error) {
	scanner := bufio.NewScanner(r)
	var items []LegacyItem
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		name := strings.TrimRight(line, "\r")
		if name == "" {
			continue
		}
		items = append(items, LegacyItem{Name: name, Type: legacyTypeFor(name)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading removal list: %w", err)
	}
	return items, nil
}

func legacyTypeFor(name string) inventory.ObjectType {
	switch strings.ToUpper(filepath.Ext(name)) {
	case ".PKG", ".DMG", ".MPKG":
		return inventory.TypePackage
	default:
		return inventory.TypeScript
	}
}

// SniffInterchange reports whether the removal file looks like an XML
// interchange document rather than a legacy list. Callers pass the
// first non-whitespace byte.
func SniffInterchange(first byte) bool {
	return first == '<'
}
