package version

import "testing"

func TestGet(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		set  string
		want string
	}{
		{"v1.2.3\n", "v1.2.3"},
		{"  ", "dev"},
		{"dev", "dev"},
	}
	for _, tt := range tests {
		Version = tt.set
		if got := Get(); got != tt.want {
			t.Errorf("Get() with %q = %q, want %q", tt.set, got, tt.want)
		}
	}
}
