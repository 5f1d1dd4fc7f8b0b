package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	prevVersion, prevCommit := Version, Commit
	defer func() { Version, Commit = prevVersion, prevCommit }()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"ShortCommit", "v1.2.3", "abc", "v1.2.3 (abc)"},
		{"LongCommitTrimmed", "v1.2.3", "0123456789abcdef", "v1.2.3 (0123456)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = tt.version, tt.commit
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}

	Version, Commit = "v9.9.9", ""
	if got := String(); !strings.HasPrefix(got, "v9.9.9") {
		t.Errorf("String() = %q, want v9.9.9 prefix", got)
	}
}
