package classify

import (
	"sort"
	"strings"
	"unicode"

	goversion "github.com/hashicorp/go-version"

	"github.com/sprucekit/spruce/internal/inventory"
)

// packageExtensions are stripped before version tokens are parsed out
// of a package filename.
var packageExtensions = []string{".pkg", ".mpkg", ".dmg", ".zip", ".ipa"}

// baseAndVersion splits an object name into its family base name and
// the trailing version string, if any. "Atom-1.0.5.pkg" yields
// ("Atom", "1.0.5"); names without a recognizable version token come
// back with an empty version.
func baseAndVersion(name string) (string, string) {
	trimmed := name
	lower := strings.ToLower(trimmed)
	for _, ext := range packageExtensions {
		if strings.HasSuffix(lower, ext) {
			trimmed = trimmed[:len(trimmed)-len(ext)]
			break
		}
	}

	tokens := splitNameTokens(trimmed)
	var versionTokens []string
	for len(tokens) > 1 && looksLikeVersion(tokens[len(tokens)-1]) {
		versionTokens = append([]string{tokens[len(tokens)-1]}, versionTokens...)
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " "), strings.Join(versionTokens, ".")
}

// splitNameTokens splits on the separators admins actually use in
// package names.
func splitNameTokens(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
}

// looksLikeVersion accepts tokens such as "1.0.5", "v2", "10.14.6b1".
func looksLikeVersion(token string) bool {
	if token == "" {
		return false
	}
	body := token
	if (body[0] == 'v' || body[0] == 'V') && len(body) > 1 {
		body = body[1:]
	}
	if !unicode.IsDigit(rune(body[0])) {
		return false
	}
	for _, r := range body {
		if !unicode.IsDigit(r) && r != '.' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// versionCandidate is one member of a same-base-name family.
type versionCandidate struct {
	object inventory.ManagedObject
	raw    string
	parsed *goversion.Version // nil when unparsable
}

// supersededIn returns the object ids flagged as superseded within one
// family, keeping the newest keep versions. Sorting is semantic-
// version-aware, newest first; identical versions tie-break on id
// ascending so the lower id is retained. Objects whose version cannot
// be parsed sort below every parsed version. Nothing is flagged unless
// the newest retained version is itself in use.
func supersededIn(family []versionCandidate, keep int, inUse func(id int) bool) []int {
	if len(family) <= keep {
		return nil
	}
	sort.SliceStable(family, func(i, j int) bool {
		vi, vj := family[i].parsed, family[j].parsed
		switch {
		case vi != nil && vj != nil:
			if !vi.Equal(vj) {
				return vi.GreaterThan(vj)
			}
		case vi != nil:
			return true
		case vj != nil:
			return false
		default:
			if family[i].raw != family[j].raw {
				return family[i].raw > family[j].raw
			}
		}
		return family[i].object.ID < family[j].object.ID
	})

	if !inUse(family[0].object.ID) {
		return nil
	}

	ids := make([]int, 0, len(family)-keep)
	for _, candidate := range family[keep:] {
		ids = append(ids, candidate.object.ID)
	}
	return ids
}

// versionFamilies groups objects by derived base name. Objects with no
// version token and a base name shared with nobody stay out of the
// redundancy check entirely.
func versionFamilies(objects []inventory.ManagedObject, explicitVersion func(inventory.ManagedObject) string) map[string][]versionCandidate {
	families := make(map[string][]versionCandidate)
	for _, obj := range objects {
		base, derived := baseAndVersion(obj.Name)
		raw := derived
		if explicitVersion != nil {
			if v := explicitVersion(obj); v != "" {
				raw = v
			}
		}
		candidate := versionCandidate{object: obj, raw: raw}
		if raw != "" {
			if parsed, err := goversion.NewVersion(raw); err == nil {
				candidate.parsed = parsed
			}
		}
		families[base] = append(families[base], candidate)
	}
	return families
}
