package mmseq

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hupe1980/mmseq/internal/fs"
	"github.com/hupe1980/mmseq/internal/mmap"
)

// mapFile opens path through the configured file system and maps it. The
// returned FileInfo is taken from the open descriptor, so it describes the
// bytes that were mapped.
func mapFile(path string, o *options) (*mmap.Mapping, os.FileInfo, error) {
	ctx := context.Background()
	start := time.Now()

	m, fi, err := mapFileRaw(path, o)
	o.metricsCollector.RecordOpen(sizeOf(fi), time.Since(start), err)
	if err != nil {
		o.logger.LogOpen(ctx, path, 0, 0, err)
		return nil, nil, err
	}
	o.logger.LogOpen(ctx, path, m.Size(), m.NumWindows(), nil)

	if o.accessPattern != AccessDefault {
		if err := m.Advise(o.accessPattern); err != nil {
			// Advice is only a hint.
			o.logger.WarnContext(ctx, "madvise failed", "path", path, "pattern", o.accessPattern.String(), "error", err)
		}
	}

	return m, fi, nil
}

func mapFileRaw(path string, o *options) (*mmap.Mapping, os.FileInfo, error) {
	f, err := fs.Open(o.fsys, path)
	if err != nil {
		return nil, nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	m, err := mmap.FromFile(f, func(mo *mmap.Options) {
		mo.WindowSize = o.windowSize
	})
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("map %s: %w", path, err)
	}

	return m, fi, nil
}

func sizeOf(fi os.FileInfo) int64 {
	if fi == nil {
		return 0
	}
	return fi.Size()
}
