package convfs

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// DerivedContent is the output of a mapping's transform for one query.
// It is never cached or shared between calls.
type DerivedContent struct {
	Bytes []byte
}

// Len returns the byte length of the content
func (c DerivedContent) Len() int64 {
	return int64(len(c.Bytes))
}

// Overlay is the result of a successful resolution: the mapping that
// applied and the content derived from the source's current state.
type Overlay struct {
	Mapping    Mapping
	Content    DerivedContent
	SourceInfo os.FileInfo
}

// Resolve reports whether an overlay applies to name.
//
// It returns (nil, nil) when name has no mapping or the mapped source
// does not exist; the caller must then use the wrapped filesystem. A
// source that exists is read completely and transformed. Failure to
// transform is a *ConversionError, any other failure to stat or read the
// source is a *MisconfigurationError.
func (ofs *OverlayFs) Resolve(name string) (*Overlay, error) {
	m, ok := ofs.lookup(name)
	if !ok {
		return nil, nil
	}

	info, err := ofs.base.Stat(m.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ofs.logger.Debug("overlay source absent, passing through",
				"target", m.Target, "source", m.Source)
			return nil, nil
		}
		return nil, &MisconfigurationError{Op: "stat", Source: m.Source, Err: err}
	}
	if info.IsDir() {
		return nil, &MisconfigurationError{Op: "read", Source: m.Source, Err: ErrSourceIsDir}
	}

	raw, err := afero.ReadFile(ofs.base, m.Source)
	if err != nil {
		// removed between stat and read
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &MisconfigurationError{Op: "read", Source: m.Source, Err: err}
	}

	out, err := m.Transform(raw)
	if err != nil {
		ofs.logger.Debug("overlay conversion failed",
			"target", m.Target, "source", m.Source, "error", err)
		return nil, &ConversionError{Target: m.Target, Source: m.Source, Err: err}
	}

	ofs.logger.Debug("overlay applied",
		"target", m.Target, "source", m.Source, "size", len(out))

	return &Overlay{
		Mapping:    m,
		Content:    DerivedContent{Bytes: out},
		SourceInfo: info,
	}, nil
}
