package classify

import "testing"

func TestBaseAndVersion(t *testing.T) {
	tests := []struct {
		name        string
		wantBase    string
		wantVersion string
	}{
		{"Atom-1.0.5.pkg", "Atom", "1.0.5"},
		{"Firefox_102.0.dmg", "Firefox", "102.0"},
		{"GoogleChrome-91.0.4472.114.pkg", "GoogleChrome", "91.0.4472.114"},
		{"Munki Tools 3.6.4.pkg", "Munki Tools", "3.6.4"},
		{"office-suite-v2.zip", "office suite", "v2"},
		{"plain-script.sh", "plain script.sh", ""},
		{"NoVersion.pkg", "NoVersion", ""},
		{"10.14.6", "10.14.6", ""}, // a bare version has nothing to supersede
	}
	for _, tt := range tests {
		base, version := baseAndVersion(tt.name)
		if base != tt.wantBase || version != tt.wantVersion {
			t.Errorf("baseAndVersion(%q) = (%q, %q), want (%q, %q)",
				tt.name, base, version, tt.wantBase, tt.wantVersion)
		}
	}
}

func TestLooksLikeVersion(t *testing.T) {
	accept := []string{"1", "1.0.5", "v2", "10.14.6b1", "2021"}
	reject := []string{"", "beta", "final", "x64", "-1"}
	for _, token := range accept {
		if !looksLikeVersion(token) {
			t.Errorf("looksLikeVersion(%q) = false, want true", token)
		}
	}
	for _, token := range reject {
		if looksLikeVersion(token) {
			t.Errorf("looksLikeVersion(%q) = true, want false", token)
		}
	}
}
