package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ShayCichocki/swarm/internal/config"
)

func TestPrintConfigMasksKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	var buf bytes.Buffer
	printConfig(&buf, cfg)
	out := buf.String()

	if strings.Contains(out, "abcdefghijklmnop") {
		t.Errorf("api key leaked:\n%s", out)
	}
	for _, want := range []string{
		"sk-ant-...WXYZ (source: config_file)",
		"mode:                 hybrid",
		"max_retries:  3",
		"(not found)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
