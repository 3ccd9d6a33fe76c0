package update

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantMajor      uint64
		wantMinor      uint64
		wantPatch      uint64
		wantPrerelease string
		wantErr        bool
	}{
		{name: "simple version", input: "0.8.2", wantMinor: 8, wantPatch: 2},
		{name: "version with v prefix", input: "v0.8.2", wantMinor: 8, wantPatch: 2},
		{name: "version with prerelease", input: "1.0.0-rc.1", wantMajor: 1, wantPrerelease: "rc.1"},
		{name: "version with alpha", input: "v2.0.0-alpha", wantMajor: 2, wantPrerelease: "alpha"},
		{name: "surrounding whitespace", input: " 2.0.0\n", wantMajor: 2},
		{name: "invalid format", input: "invalid", wantErr: true},
		{name: "missing patch", input: "1.0", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got.Major() != tt.wantMajor || got.Minor() != tt.wantMinor ||
				got.Patch() != tt.wantPatch || got.Prerelease() != tt.wantPrerelease {
				t.Errorf("ParseVersion() = %s, want %d.%d.%d-%s",
					got, tt.wantMajor, tt.wantMinor, tt.wantPatch, tt.wantPrerelease)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name    string
		v1      string
		v2      string
		want    int
		wantErr bool
	}{
		{name: "equal versions", v1: "0.8.2", v2: "0.8.2", want: 0},
		{name: "equal with v prefix", v1: "v0.8.2", v2: "0.8.2", want: 0},
		{name: "major version greater", v1: "2.0.0", v2: "1.9.9", want: 1},
		{name: "minor version less", v1: "1.8.0", v2: "1.9.0", want: -1},
		{name: "patch version greater", v1: "1.0.3", v2: "1.0.2", want: 1},
		{name: "stable > prerelease", v1: "1.0.0", v2: "1.0.0-rc.1", want: 1},
		{name: "rc.2 > rc.1", v1: "1.0.0-rc.2", v2: "1.0.0-rc.1", want: 1},
		{name: "beta < rc", v1: "1.0.0-beta", v2: "1.0.0-rc.1", want: -1},
		{name: "0.10.0 > 0.9.0", v1: "0.10.0", v2: "0.9.0", want: 1},
		{name: "invalid v1", v1: "invalid", v2: "0.8.2", wantErr: true},
		{name: "invalid v2", v1: "0.8.2", v2: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareVersions(tt.v1, tt.v2)
			if (err != nil) != tt.wantErr {
				t.Errorf("CompareVersions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("CompareVersions(%s, %s) = %d, want %d", tt.v1, tt.v2, got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "2.0.0", true},
		{"2.0.0", "2.0.0", false},
		{"2.0.0", "1.0.0", false},
		{"v1.2.3", "1.2.4", true},
	}

	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			got, err := IsNewer(tt.current, tt.latest)
			if err != nil {
				t.Fatalf("IsNewer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsNewer(%s, %s) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "with v prefix", input: "v0.8.2", want: "0.8.2"},
		{name: "without v prefix", input: "0.8.2", want: "0.8.2"},
		{name: "with prerelease", input: "v1.0.0-rc.1", want: "1.0.0-rc.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeVersion(tt.input); got != tt.want {
				t.Errorf("NormalizeVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}
