package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "msgcenter.log")
	if err := Configure("debug", path); err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer Configure("", "")

	Sugar.Debugf("[Test] hello: n=%d", 7)
	_ = Log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[Test] hello: n=7") {
		t.Fatalf("log line missing: %q", data)
	}
	if !strings.Contains(string(data), "DEBUG") {
		t.Fatalf("level missing: %q", data)
	}
}

func TestConfigureBadLevel(t *testing.T) {
	if err := Configure("loud", ""); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
