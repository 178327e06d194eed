package flagx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "keeps allowed flag with separate value",
			args:    []string{"-d", "/data", "-x", "other"},
			allowed: []string{"-d"},
			want:    []string{"-d", "/data"},
		},
		{
			name:    "keeps equals form",
			args:    []string{"--data-dir=/data", "--other=1"},
			allowed: []string{"--data-dir"},
			want:    []string{"--data-dir=/data"},
		},
		{
			name:    "flag without value before another flag",
			args:    []string{"-v", "-d", "/data"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1", "-b", "2"},
			allowed: []string{"-z"},
			want:    []string{},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-d"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("FilterArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		flags []string
		want  []string
	}{
		{
			name:  "removes flag with separate value",
			args:  []string{"-d", "/data", "dashboard"},
			flags: []string{"-d"},
			want:  []string{"dashboard"},
		},
		{
			name:  "removes equals form",
			args:  []string{"--data-dir=/data", "users"},
			flags: []string{"--data-dir"},
			want:  []string{"users"},
		},
		{
			name:  "keeps unrelated flags",
			args:  []string{"compliance", "-min", "100000"},
			flags: []string{"-d"},
			want:  []string{"compliance", "-min", "100000"},
		},
		{
			name:  "flag before another flag keeps the second",
			args:  []string{"-v", "-d", "/data"},
			flags: []string{"-v"},
			want:  []string{"-d", "/data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFlags(tt.args, tt.flags)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("StripFlags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
