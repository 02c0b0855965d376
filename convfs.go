package convfs

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/absfs/convfs/transform"
)

// DefaultChunkSize is the size of the data chunks emitted by streams
// unless overridden with WithChunkSize or WithStreamChunkSize.
const DefaultChunkSize = 64 * 1024

var (
	// ErrMappingExists is returned when a target is registered twice
	ErrMappingExists = errors.New("mapping already registered for target")
	// ErrInvalidMapping is returned for mappings with an empty path or a
	// source equal to its target
	ErrInvalidMapping = errors.New("invalid mapping")
)

// Mapping binds a target path to the source it is derived from.
type Mapping struct {
	Target    string
	Source    string
	Transform transform.Func
}

// OverlayFs wraps an afero.Fs and intercepts reads of registered target
// paths. Every other path, and every write, goes to the wrapped
// filesystem unchanged.
type OverlayFs struct {
	base      afero.Fs
	mappings  map[string]Mapping
	mu        sync.RWMutex
	transform transform.Func
	normalize func(string) string
	logger    *slog.Logger
	chunkSize int
	pending   []Mapping
}

// Option is a functional option for configuring OverlayFs
type Option func(*OverlayFs)

// WithMapping registers target as derived from source during New. The
// mapping uses the transform set with WithTransform, YAML to JSON if none.
func WithMapping(target, source string) Option {
	return func(ofs *OverlayFs) {
		ofs.pending = append(ofs.pending, Mapping{Target: target, Source: source})
	}
}

// WithMappings registers fully specified mappings during New
func WithMappings(mappings ...Mapping) Option {
	return func(ofs *OverlayFs) {
		ofs.pending = append(ofs.pending, mappings...)
	}
}

// WithTransform sets the transform used by mappings that don't carry
// their own. Defaults to transform.YAMLToJSON.
func WithTransform(fn transform.Func) Option {
	return func(ofs *OverlayFs) {
		ofs.transform = fn
	}
}

// WithPathNormalizer replaces the rule used to match queried paths
// against registered targets. Both sides go through fn. Defaults to
// filepath.Clean.
func WithPathNormalizer(fn func(string) string) Option {
	return func(ofs *OverlayFs) {
		ofs.normalize = fn
	}
}

// WithLogger sets the logger receiving resolution decisions at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(ofs *OverlayFs) {
		ofs.logger = logger
	}
}

// WithChunkSize sets the default chunk size of read streams
func WithChunkSize(size int) Option {
	return func(ofs *OverlayFs) {
		ofs.chunkSize = size
	}
}

// New creates an OverlayFs on top of base with the specified options
func New(base afero.Fs, opts ...Option) (*OverlayFs, error) {
	ofs := &OverlayFs{
		base:      base,
		mappings:  make(map[string]Mapping),
		transform: transform.YAMLToJSON,
		normalize: filepath.Clean,
		logger:    slog.New(slog.DiscardHandler),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(ofs)
	}

	if ofs.chunkSize <= 0 {
		ofs.chunkSize = DefaultChunkSize
	}
	if ofs.normalize == nil {
		ofs.normalize = filepath.Clean
	}
	if ofs.transform == nil {
		ofs.transform = transform.YAMLToJSON
	}
	if ofs.logger == nil {
		ofs.logger = slog.New(slog.DiscardHandler)
	}

	pending := ofs.pending
	ofs.pending = nil
	for _, m := range pending {
		if err := ofs.RegisterMapping(m); err != nil {
			return nil, err
		}
	}
	return ofs, nil
}

// Name returns the name of the filesystem
func (ofs *OverlayFs) Name() string {
	return "convfs"
}

// Base returns the wrapped filesystem
func (ofs *OverlayFs) Base() afero.Fs {
	return ofs.base
}

// RegisterOverlay registers target as derived from source with the
// default transform.
func (ofs *OverlayFs) RegisterOverlay(target, source string) error {
	return ofs.RegisterMapping(Mapping{Target: target, Source: source})
}

// RegisterMapping registers m. A registered mapping is never replaced or
// removed.
func (ofs *OverlayFs) RegisterMapping(m Mapping) error {
	if m.Target == "" || m.Source == "" {
		return fmt.Errorf("%w: target and source must be set", ErrInvalidMapping)
	}

	m.Target = ofs.normalize(m.Target)
	m.Source = ofs.normalize(m.Source)
	if m.Target == m.Source {
		return fmt.Errorf("%w: %s is its own source", ErrInvalidMapping, m.Target)
	}
	if m.Transform == nil {
		m.Transform = ofs.transform
	}

	ofs.mu.Lock()
	defer ofs.mu.Unlock()

	if _, ok := ofs.mappings[m.Target]; ok {
		return fmt.Errorf("%w: %s", ErrMappingExists, m.Target)
	}
	ofs.mappings[m.Target] = m

	ofs.logger.Debug("registered overlay", "target", m.Target, "source", m.Source)
	return nil
}

// Mappings returns the registered mappings sorted by target
func (ofs *OverlayFs) Mappings() []Mapping {
	ofs.mu.RLock()
	defer ofs.mu.RUnlock()

	out := make([]Mapping, 0, len(ofs.mappings))
	for _, m := range ofs.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target < out[j].Target
	})
	return out
}

// lookup returns the mapping registered for name, if any
func (ofs *OverlayFs) lookup(name string) (Mapping, bool) {
	key := ofs.normalize(name)

	ofs.mu.RLock()
	defer ofs.mu.RUnlock()

	m, ok := ofs.mappings[key]
	return m, ok
}

// AbsPath is a path normalizer for OS backed filesystems: relative paths
// are resolved against the working directory.
func AbsPath(name string) string {
	abs, err := filepath.Abs(name)
	if err != nil {
		return filepath.Clean(name)
	}
	return abs
}
