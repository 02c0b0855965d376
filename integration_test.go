package convfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/absfs/convfs/transform"
)

// packageYAML is a realistic package manifest including non-ASCII text
const packageYAML = `name: demo
version: 0.1.0
description: "demo package"
main: lib/index.js
scripts:
  test: node tests/run.js
dependencies:
  js-yaml: "*"
keywords: [yaml, json]
test_nonascii: тест
`

// TestOsFsLifecycle walks through the life of a project directory on the
// real filesystem: no manifest, JSON only, both, and YAML only.
func TestOsFsLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Chdir(t.TempDir())

	ofs, err := New(afero.NewOsFs(),
		WithPathNormalizer(AbsPath),
		WithMapping("package.json", "package.yaml"),
	)
	if err != nil {
		t.Fatalf("failed to create overlay: %v", err)
	}

	expected, err := transform.YAMLToJSON([]byte(packageYAML))
	if err != nil {
		t.Fatalf("failed to convert fixture: %v", err)
	}

	stream := func() ([]byte, error) {
		return ofs.CreateReadStream(context.Background(), "package.json").ReadAll()
	}

	t.Run("nothing", func(t *testing.T) {
		if _, err := ofs.Lstat("package.json"); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected not-exist from lstat, got %v", err)
		}
		data, err := stream()
		if len(data) != 0 || !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected not-exist with no data, got %q, %v", data, err)
		}
	})

	t.Run("json", func(t *testing.T) {
		if err := os.WriteFile("package.json", expected, 0644); err != nil {
			t.Fatalf("failed to write: %v", err)
		}

		info, err := ofs.Lstat("package.json")
		if err != nil {
			t.Fatalf("lstat failed: %v", err)
		}
		if info.Size() != int64(len(expected)) {
			t.Errorf("expected size %d, got %d", len(expected), info.Size())
		}

		data, err := stream()
		if err != nil || string(data) != string(expected) {
			t.Errorf("unexpected stream result %q, %v", data, err)
		}
	})

	t.Run("both", func(t *testing.T) {
		if err := os.WriteFile("package.yaml", []byte(packageYAML), 0644); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		if err := os.WriteFile("package.json", []byte(`{"garbage":"garbage"}`), 0644); err != nil {
			t.Fatalf("failed to write: %v", err)
		}

		info, err := ofs.Lstat("package.json")
		if err != nil {
			t.Fatalf("lstat failed: %v", err)
		}
		if info.Size() != int64(len(expected)) {
			t.Errorf("expected size %d, got %d", len(expected), info.Size())
		}

		data, err := stream()
		if err != nil || string(data) != string(expected) {
			t.Errorf("unexpected stream result %q, %v", data, err)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		if err := os.Remove("package.json"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}

		info, err := ofs.Stat("package.json")
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() != int64(len(expected)) {
			t.Errorf("expected size %d, got %d", len(expected), info.Size())
		}

		// absolute spelling of the same path
		abs, _ := filepath.Abs("package.json")
		data, err := ofs.ReadFile(abs)
		if err != nil || string(data) != string(expected) {
			t.Errorf("unexpected read result %q, %v", data, err)
		}

		data, err = stream()
		if err != nil || string(data) != string(expected) {
			t.Errorf("unexpected stream result %q, %v", data, err)
		}
	})
}

// TestConcurrentQueries checks that parallel stat and stream calls each
// see a consistent result
func TestConcurrentQueries(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, packageYAML)

	ofs := mustNew(t, base, WithChunkSize(7))

	expected, err := ofs.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			info, err := ofs.Stat(target)
			if err != nil {
				return err
			}
			if info.Size() != int64(len(expected)) {
				return fmt.Errorf("stat %d: size %d", i, info.Size())
			}

			data, err := ofs.CreateReadStream(context.Background(), target).ReadAll()
			if err != nil {
				return err
			}
			if string(data) != string(expected) {
				return fmt.Errorf("stream %d: unexpected content", i)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
