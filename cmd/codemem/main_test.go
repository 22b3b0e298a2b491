package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/codemem/internal/config"
	"github.com/verte-zerg/codemem/internal/model"
)

func validConfig() model.Config {
	return model.Config{
		TickInterval: defaultTickMs * time.Millisecond,
		GroupSize:    defaultGroupSize,
		History:      true,
		LogLevel:     defaultLogLevel,
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(validConfig()))

	cases := map[string]func(*model.Config){
		"zero tick":      func(c *model.Config) { c.TickInterval = 0 },
		"slow tick":      func(c *model.Config) { c.TickInterval = 2 * time.Second },
		"zero group":     func(c *model.Config) { c.GroupSize = 0 },
		"oversize group": func(c *model.Config) { c.GroupSize = model.SequenceLength + 1 },
		"bad level":      func(c *model.Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tc.input), &out, "sure? ")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Equal(t, "sure? ", out.String())
	}
}

func TestDefaultConfigTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Session.TickMs)
	assert.Nil(t, cfg.Session.GroupSize)
}

func TestOpenLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "codemem.log")
	log, closer, err := openLogger(path, "debug")
	require.NoError(t, err)
	log.Debug().Str("phase", "memorize").Msg("phase changed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"memorize"`)

	_, _, err = openLogger(path, "loud")
	assert.Error(t, err)
}
