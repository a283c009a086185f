package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "vault.json", "-d", "vault.db"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "vault.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-d", "vault.db"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-c", "-level=debug"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "repeated flag preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	assert.Equal(t, "/p/short.json", JsonConfigFlags([]string{"-c", "/p/short.json"}))
	assert.Equal(t, "/p/long.json", JsonConfigFlags([]string{"-config", "/p/long.json"}))
	assert.Equal(t, "/p/eq.json", JsonConfigFlags([]string{"--config=/p/eq.json"}))
	assert.Equal(t, "/p/2.json", JsonConfigFlags([]string{"-c", "/p/1.json", "-config", "/p/2.json"}))
	assert.Empty(t, JsonConfigFlags([]string{"-x", "1"}))
}

func TestEnvFileFlags(t *testing.T) {
	assert.Equal(t, "local.env", EnvFileFlags([]string{"-d", "x.db", "-e", "local.env"}))
	assert.Equal(t, "prod.env", EnvFileFlags([]string{"-env-file=prod.env"}))
	assert.Empty(t, EnvFileFlags(nil))
}
