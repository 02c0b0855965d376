/*
Package convfs provides a filesystem decorator that serves derived
configuration files, computed on demand from a source file in another
format.

# Overview

A mapping binds a target path (the file consumers ask for, such as
package.json) to a source path (the file maintained by people, such as
package.yaml) and a transform converting one format into the other. An
OverlayFs wraps any afero.Fs and, for every registered target, answers
metadata and read queries as if a file holding the transformed source
existed at the target path. The target never has to exist on disk.

All other paths, and every write, reach the wrapped filesystem unchanged.

# Basic Usage

	package main

	import (
	    "github.com/absfs/convfs"
	    "github.com/spf13/afero"
	)

	func main() {
	    ofs, err := convfs.New(afero.NewOsFs(),
	        convfs.WithPathNormalizer(convfs.AbsPath),
	        convfs.WithMapping("package.json", "package.yaml"),
	    )
	    if err != nil {
	        panic(err)
	    }

	    // JSON derived from package.yaml, if package.yaml exists
	    data, err := afero.ReadFile(ofs, "package.json")
	}

Consumers programmed against afero.Fs, or against absfs.FileSystem via
FileSystem, work unmodified on an OverlayFs.

# Resolution

Each query against a target resolves the overlay again:

  - source absent: the query goes to the wrapped filesystem verbatim,
    including its not-found error when the target is absent too
  - source present: the source is read in full and transformed; the size
    reported by Stat is the byte length of the result and reads return
    exactly its bytes
  - source present but not convertible: the query fails with an error
    matching ErrConversion
  - source not checkable for another reason, such as a permission error:
    the query fails with an error matching ErrMisconfigured

Nothing is cached. Two queries observe the same content only if the
source did not change between them.

# Precedence

An existing source always wins over an existing target. Writes to the
target are passed through to disk, but while the source exists they are
never visible through the OverlayFs. Tools that write the target file and
read it back through the overlay will see the derived content instead.

# Streams

CreateReadStream returns a Stream whose chunks are produced by a
goroutine after the call returns, so a consumer can always set up before
the first chunk or error arrives:

	s := ofs.CreateReadStream(ctx, "package.json")
	for chunk := range s.Chunks() {
	    os.Stdout.Write(chunk)
	}
	if err := s.Err(); err != nil {
	    // errors.Is(err, fs.ErrNotExist) when neither file exists
	}

Chunks arrive in byte order and the end of the channel is always the last
event. A Stream is also an io.ReadCloser.

# Thread Safety

An OverlayFs is safe for concurrent use. Mappings can't be changed or
removed once registered.
*/
package convfs
