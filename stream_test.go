package convfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/goleak"
)

// drain collects all chunks of a stream and returns them with the
// terminal error
func drain(s *Stream) ([][]byte, error) {
	var chunks [][]byte
	for chunk := range s.Chunks() {
		chunks = append(chunks, chunk)
	}
	return chunks, s.Err()
}

// TestStreamNothingExists checks that a missing file ends the stream with
// not-exist and no data
func TestStreamNothingExists(t *testing.T) {
	defer goleak.VerifyNone(t)

	ofs := mustNew(t, afero.NewMemMapFs())

	chunks, err := drain(ofs.CreateReadStream(context.Background(), target))
	if len(chunks) != 0 {
		t.Errorf("expected no data, got %d chunks", len(chunks))
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist, got %v", err)
	}
}

// TestStreamPassthrough checks that an unmapped or sourceless file is
// streamed verbatim
func TestStreamPassthrough(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, target, derived)

	ofs := mustNew(t, base)

	chunks, err := drain(ofs.CreateReadStream(context.Background(), target))
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if got := string(bytes.Join(chunks, nil)); got != derived {
		t.Errorf("expected '%s', got '%s'", derived, got)
	}
}

// TestStreamOverlay checks that derived content wins over the target
func TestStreamOverlay(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\n")
	writeFile(t, base, target, `{"garbage":"garbage"}`)

	ofs := mustNew(t, base)

	chunks, err := drain(ofs.CreateReadStream(context.Background(), target))
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if got := string(bytes.Join(chunks, nil)); got != derived {
		t.Errorf("expected '%s', got '%s'", derived, got)
	}

	// and without the target
	if err := base.Remove(target); err != nil {
		t.Fatalf("failed to remove target: %v", err)
	}
	chunks, err = drain(ofs.CreateReadStream(context.Background(), target))
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if got := string(bytes.Join(chunks, nil)); got != derived {
		t.Errorf("expected '%s', got '%s'", derived, got)
	}
}

// TestStreamChunking checks ordering and sizes of emitted chunks
func TestStreamChunking(t *testing.T) {
	defer goleak.VerifyNone(t)

	items := make([]string, 200)
	for i := range items {
		items[i] = "- item"
	}

	base := afero.NewMemMapFs()
	writeFile(t, base, source, strings.Join(items, "\n"))
	writeFile(t, base, "/plain.txt", strings.Repeat("0123456789", 10))

	ofs := mustNew(t, base, WithChunkSize(16))

	expected, err := ofs.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}

	for _, name := range []string{target, "/plain.txt"} {
		want, _ := ofs.ReadFile(name)

		chunks, err := drain(ofs.CreateReadStream(context.Background(), name))
		if err != nil {
			t.Fatalf("%s: stream failed: %v", name, err)
		}
		for i, chunk := range chunks {
			if len(chunk) == 0 || len(chunk) > 16 {
				t.Errorf("%s: chunk %d has size %d", name, i, len(chunk))
			}
		}
		if !bytes.Equal(bytes.Join(chunks, nil), want) {
			t.Errorf("%s: concatenated chunks differ from file content", name)
		}
	}

	// per stream override
	chunks, err := drain(ofs.CreateReadStream(context.Background(), target, WithStreamChunkSize(len(expected))))
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected a single chunk, got %d", len(chunks))
	}
}

// TestStreamLateConsumer checks that no event is lost when the consumer
// starts reading well after the stream was created
func TestStreamLateConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\n")

	ofs := mustNew(t, base)

	s := ofs.CreateReadStream(context.Background(), target)
	missing := ofs.CreateReadStream(context.Background(), "/missing")

	time.Sleep(20 * time.Millisecond)

	data, err := s.ReadAll()
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if string(data) != derived {
		t.Errorf("expected '%s', got '%s'", derived, data)
	}

	chunks, err := drain(missing)
	if len(chunks) != 0 || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist with no data, got %d chunks and %v", len(chunks), err)
	}
}

// TestStreamConversionError checks that conversion failures end the stream
func TestStreamConversionError(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\na: 2\n")
	writeFile(t, base, target, derived)

	ofs := mustNew(t, base)

	chunks, err := drain(ofs.CreateReadStream(context.Background(), target))
	if len(chunks) != 0 {
		t.Errorf("expected no data, got %d chunks", len(chunks))
	}
	if !errors.Is(err, ErrConversion) {
		t.Errorf("expected conversion error, got %v", err)
	}
}

// TestStreamReader checks the io.Reader side of a stream
func TestStreamReader(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\n")

	ofs := mustNew(t, base, WithChunkSize(3))

	s := ofs.CreateReadStream(context.Background(), target)
	defer s.Close()

	data, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != derived {
		t.Errorf("expected '%s', got '%s'", derived, data)
	}

	missing := ofs.CreateReadStream(context.Background(), "/missing")
	defer missing.Close()

	if _, err := io.ReadAll(missing); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist from reader, got %v", err)
	}
}

// TestStreamCancel checks that cancellation stops the producer
func TestStreamCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, "/big.txt", strings.Repeat("x", 1024))

	ofs := mustNew(t, base, WithChunkSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	s := ofs.CreateReadStream(ctx, "/big.txt")

	<-s.Chunks()
	cancel()

	if err := s.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestStreamClose checks that closing an undrained stream releases it
func TestStreamClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := afero.NewMemMapFs()
	writeFile(t, base, source, "a: 1\nb: 2\nc: 3\n")

	ofs := mustNew(t, base, WithChunkSize(1))

	s := ofs.CreateReadStream(context.Background(), target)
	if s.Name() != target {
		t.Errorf("expected name %s, got %s", target, s.Name())
	}

	<-s.Chunks()
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	select {
	case <-s.Done():
	default:
		t.Error("stream should be done after Close")
	}
}
