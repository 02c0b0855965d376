package convfs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
)

// Stream delivers the content of one file as a sequence of chunks
// followed by a terminal result.
//
// Chunks are produced by a goroutine started by CreateReadStream, so no
// chunk and no error is ever observed before CreateReadStream returns.
// The chunk channel is closed after the last chunk; from then on Err
// reports the terminal error, nil on success. A stream must be drained, closed or
// have its context cancelled, otherwise its goroutine blocks forever.
type Stream struct {
	name    string
	chunks  chan []byte
	done    chan struct{}
	err     error
	cancel  context.CancelFunc
	pending []byte
	once    sync.Once
}

// StreamOption configures a single stream
type StreamOption func(*streamConfig)

type streamConfig struct {
	chunkSize int
}

// WithStreamChunkSize sets the maximum size of emitted chunks
func WithStreamChunkSize(size int) StreamOption {
	return func(cfg *streamConfig) {
		if size > 0 {
			cfg.chunkSize = size
		}
	}
}

// CreateReadStream opens a sequential read stream for name.
//
// For a target with an existing source the stream emits the derived
// content and never touches the real target. Otherwise it reads name
// from the wrapped filesystem, ending with that filesystem's error if the
// file cannot be opened. Resolution failures end the stream with a
// *os.PathError wrapping the *ConversionError or *MisconfigurationError.
func (ofs *OverlayFs) CreateReadStream(ctx context.Context, name string, opts ...StreamOption) *Stream {
	cfg := streamConfig{chunkSize: ofs.chunkSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		name:   name,
		chunks: make(chan []byte),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go s.run(ctx, func(emit func([]byte) error) error {
		return ofs.produce(ctx, name, cfg.chunkSize, emit)
	})

	return s
}

func (s *Stream) run(ctx context.Context, produce func(emit func([]byte) error) error) {
	emit := func(chunk []byte) error {
		select {
		case s.chunks <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.err = produce(emit)
	s.cancel()

	// done before chunks, so Err is final once a range over Chunks ends
	close(s.done)
	close(s.chunks)
}

func (ofs *OverlayFs) produce(ctx context.Context, name string, chunkSize int, emit func([]byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ov, err := ofs.Resolve(name)
	if err != nil {
		return &os.PathError{Op: "open", Path: name, Err: err}
	}

	if ov != nil {
		data := ov.Content.Bytes
		for len(data) > 0 {
			n := min(chunkSize, len(data))
			if err := emit(data[:n]); err != nil {
				return err
			}
			data = data[n:]
		}
		return nil
	}

	f, err := ofs.base.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		buf := make([]byte, chunkSize)
		n, err := f.Read(buf)
		if n > 0 {
			if err := emit(buf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Name returns the path the stream was created for
func (s *Stream) Name() string {
	return s.name
}

// Chunks returns the channel delivering data chunks in order. It is
// closed when the stream terminates.
func (s *Stream) Chunks() <-chan []byte {
	return s.chunks
}

// Done is closed once the stream has terminated
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error of a finished stream and nil while the
// stream is still running.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the stream has terminated and returns its terminal
// error. Chunks must be consumed concurrently for Wait to return.
func (s *Stream) Wait() error {
	<-s.done
	return s.err
}

// Read implements io.Reader on top of the chunk channel. It returns
// io.EOF after a successful end and the terminal error otherwise.
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		chunk, ok := <-s.chunks
		if !ok {
			if err := s.Wait(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		s.pending = chunk
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close stops the stream, discards undelivered chunks and waits for the
// producer to exit.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		for range s.chunks {
		}
		<-s.done
	})
	return nil
}

// ReadAll drains the stream and returns the concatenated chunks
func (s *Stream) ReadAll() ([]byte, error) {
	var data []byte
	for chunk := range s.chunks {
		data = append(data, chunk...)
	}
	return data, s.Wait()
}
