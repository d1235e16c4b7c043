package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	t.Parallel()

	got := UserAgent()
	if !strings.HasPrefix(got, "minimon/") {
		t.Errorf("UserAgent() = %q, want prefix %q", got, "minimon/")
	}
	if strings.TrimPrefix(got, "minimon/") != Get() {
		t.Errorf("UserAgent() = %q, want suffix %q", got, Get())
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		want    bool
	}{
		{name: "devel", version: "devel", want: true},
		{name: "empty", version: "", want: true},
		{name: "release", version: "v1.2.0", want: false},
		{name: "pseudo version", version: "v0.0.0-20251019120000-abcdef123456", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsDevelopment(tt.version); got != tt.want {
				t.Errorf("IsDevelopment(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}
