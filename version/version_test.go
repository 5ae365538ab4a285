package version

import (
	"runtime/debug"
	"testing"
)

func saveAndRestore() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() {
		Version, GitCommit, BuildTime = v, c, b
	}
}

func TestResolve(t *testing.T) {
	defer saveAndRestore()()

	tests := []struct {
		name      string
		version   string
		commit    string
		bi        *debug.BuildInfo
		want      string
		release   bool
		wantBuilt string
	}{
		{
			name:    "dev without build info",
			version: "dev",
			want:    "dev",
		},
		{
			name:    "ldflags win",
			version: "1.4.0",
			commit:  "abcdef123456",
			bi: &debug.BuildInfo{GoVersion: "go1.26.0", Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "ffffffffffff"},
			}},
			want:    "1.4.0-abcdef1",
			release: true,
		},
		{
			name:    "vcs stamp",
			version: "dev",
			bi: &debug.BuildInfo{GoVersion: "go1.26.0", Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789ab"},
				{Key: "vcs.modified", Value: "true"},
				{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
			}},
			want:      "dev-0123456-dirty",
			wantBuilt: "2026-03-01T10:00:00Z",
		},
		{
			name:    "module version",
			version: "dev",
			bi:      &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}},
			want:    "v0.3.1",
			release: true,
		},
		{
			name:    "dirty version is not a release",
			version: "1.0.0-dirty",
			want:    "1.0.0-dirty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, GitCommit, BuildTime = tt.version, tt.commit, ""
			info := resolve(tt.bi)
			if got := info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if info.IsRelease != tt.release {
				t.Errorf("IsRelease = %v, want %v", info.IsRelease, tt.release)
			}
			if info.BuildTime != tt.wantBuilt {
				t.Errorf("BuildTime = %q, want %q", info.BuildTime, tt.wantBuilt)
			}
		})
	}
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	if info.Version == "" {
		t.Error("expected a version")
	}
	if GetShortVersion() == "" {
		t.Error("expected a short version")
	}
}
