package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		l := newLogger(in)
		if !l.Enabled(context.Background(), want) {
			t.Errorf("%s: level %v should be enabled", in, want)
		}
		if want > slog.LevelDebug && l.Enabled(context.Background(), want-4) {
			t.Errorf("%s: level below %v should be disabled", in, want)
		}
	}
}

func TestCreateTarGz(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "grouphelper.db")
	b := filepath.Join(dir, "config.yaml")
	os.WriteFile(a, []byte("db"), 0o600)
	os.WriteFile(b, []byte("telegram: {}"), 0o600)

	out := filepath.Join(dir, "backup.tar.gz")
	if err := createTarGz(out, []string{a, b}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)

	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, h.Name)
	}
	if !slices.Equal(names, []string{"grouphelper.db", "config.yaml"}) {
		t.Errorf("archive entries = %v", names)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	os.WriteFile(path, []byte("GROUPHELPER_TEST_DOTENV=loaded\n"), 0o600)
	t.Setenv("GROUPHELPER_TEST_DOTENV", "")
	os.Unsetenv("GROUPHELPER_TEST_DOTENV")

	envFile = path
	defer func() { envFile = ".env" }()
	logger = newLogger("error")

	if err := loadEnvFile(); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("GROUPHELPER_TEST_DOTENV"); got != "loaded" {
		t.Errorf("env = %q", got)
	}

	envFile = filepath.Join(t.TempDir(), "missing.env")
	if err := loadEnvFile(); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestHumanSize(t *testing.T) {
	for in, want := range map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	} {
		if got := humanSize(in); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", in, got, want)
		}
	}
}
