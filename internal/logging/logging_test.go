package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parley/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "parley.log")
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level %s", logger.GetLevel())
	}
	logger.Debug("round complete")

	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"round complete"`) {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestConfigureIgnoresUnknownLevel(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "parley.log")
	cfg.Logging.Level = "loud"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected default info level, got %s", logger.GetLevel())
	}
}
