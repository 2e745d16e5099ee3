package data

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs string
		ok       bool
	}{
		{"/status", "status", "", true},
		{"  /Params  ", "params", "", true},
		{"/status@relay_bot verbose", "status", "verbose", true},
		{"/params a  b", "params", "a  b", true},
		{"status", "", "", false},
		{"/", "", "", false},
		{"/ status", "", "", false},
	}
	for _, tt := range tests {
		cmd, ok := parseSlashCommand(tt.text)
		require.Equal(t, tt.ok, ok, tt.text)
		require.Equal(t, tt.wantName, cmd.Name, tt.text)
		require.Equal(t, tt.wantArgs, cmd.Args, tt.text)
	}
}
