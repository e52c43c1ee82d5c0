package main

import (
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"catalog", "import"},
		{"catalog", "export"},
		{"configs", "list"},
		{"configs", "enable"},
		{"configs", "disable"},
		{"generate"},
		{"credentials", "invalidate"},
		{"credentials", "reissue"},
		{"assets", "upload"},
		{"jobs", "summary"},
		{"version"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", strings.Join(path, " "), err)
			continue
		}
		if cmd.Name() != path[len(path)-1] {
			t.Errorf("expected command %s, got %s", path[len(path)-1], cmd.Name())
		}
	}
}

func TestGenerate_UserRequiresConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"generate", "--user", "5"})
	root.SilenceErrors = true

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--user requires --config") {
		t.Errorf("expected --config error, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
