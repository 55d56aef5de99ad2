package application

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/dbcreds/internal/config"
	"github.com/eugenenazirov/dbcreds/internal/reconcile"
	"github.com/eugenenazirov/dbcreds/internal/render"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func baseTestConfig(dir string) config.Config {
	return config.Config{
		Dir:           dir,
		EnvFile:       ".env",
		Pattern:       "*.yml",
		Format:        render.FormatText,
		Extractor:     reconcile.ModeHeuristic,
		DSNAddr:       "127.0.0.1:3306",
		WatchThrottle: 10 * time.Millisecond,
		LogLevel:      "debug",
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRunPrintsRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "MYSQL_DATABASE=shop\nMYSQL_USER=shop_user\nMYSQL_PASSWORD=pw1\nMYSQL_ROOT_PASSWORD=rootpw\n")

	var out bytes.Buffer
	app, err := New(baseTestConfig(dir), zaptest.NewLogger(t), &out)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := "{database: shop, user: shop_user, password: pw1, root_password: rootpw}\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "MYSQL_ROOT_PASSWORD=rootpw\n")
	writeFile(t, dir, "app.yml", "db_name: shop2\n")

	outputs := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		app, err := New(baseTestConfig(dir), zaptest.NewLogger(t), &out)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if err := app.Run(context.Background()); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		outputs = append(outputs, out.String())
	}

	if outputs[0] != outputs[1] {
		t.Fatalf("expected identical output, got %q and %q", outputs[0], outputs[1])
	}
	if want := "{database: shop2, user: null, password: null, root_password: rootpw}\n"; outputs[0] != want {
		t.Fatalf("expected %q, got %q", want, outputs[0])
	}
}

func TestRunMissingEnvFile(t *testing.T) {
	var out bytes.Buffer
	app, err := New(baseTestConfig(t.TempDir()), zaptest.NewLogger(t), &out)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := app.Run(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output on failure, got %q", out.String())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := baseTestConfig(t.TempDir())
	cfg.Format = "xml"
	if _, err := New(cfg, zaptest.NewLogger(t), &bytes.Buffer{}); !errors.Is(err, render.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}

	cfg = baseTestConfig(t.TempDir())
	cfg.Extractor = "magic"
	if _, err := New(cfg, zaptest.NewLogger(t), &bytes.Buffer{}); !errors.Is(err, reconcile.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestRunWatchReprintsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "MYSQL_DATABASE=shop\n")

	cfg := baseTestConfig(dir)
	cfg.Watch = true
	out := &syncBuffer{}
	app, err := New(cfg, zaptest.NewLogger(t), out)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- app.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-result:
		case <-time.After(2 * time.Second):
			t.Errorf("Run did not stop after cancellation")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "database: shop2") {
		if time.Now().After(deadline) {
			t.Fatalf("expected reprint after change, got %q", out.String())
		}
		writeFile(t, dir, "app.yml", "user: watcher\n")
		writeFile(t, dir, ".env", "MYSQL_DATABASE=shop2\n")
		time.Sleep(20 * time.Millisecond)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "{database: shop, user: null, password: null, root_password: null}" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == lines[i-1] {
			t.Fatalf("identical record printed twice: %q", lines[i])
		}
	}
}

func TestWatchesInputs(t *testing.T) {
	app, err := New(baseTestConfig(t.TempDir()), zaptest.NewLogger(t), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for name, want := range map[string]bool{
		".env":        true,
		"db.yml":      true,
		".hidden.yml": false,
		"notes.txt":   false,
	} {
		if got := app.watches(name); got != want {
			t.Fatalf("watches(%q) = %t, want %t", name, got, want)
		}
	}
}
