package lineindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/mmseq/codec"
	"github.com/hupe1980/mmseq/internal/fs"
)

const formatVersion = 1

var magic = [8]byte{'M', 'M', 'S', 'Q', 'I', 'D', 'X', 0x01}

var (
	// ErrMismatch is returned when a sidecar describes a different file or
	// different index parameters.
	ErrMismatch = errors.New("lineindex: sidecar does not match data file")
	// ErrCorrupt is returned when a sidecar cannot be decoded.
	ErrCorrupt = errors.New("lineindex: corrupt sidecar")
)

// Meta identifies the data file and parameters an index was built for.
type Meta struct {
	FileSize   int64
	ModTime    int64 // UnixNano
	Separator  []byte
	BucketSize int
}

type header struct {
	Version     int    `json:"version"`
	FileSize    int64  `json:"file_size"`
	ModTime     int64  `json:"mod_time"`
	Separator   []byte `json:"separator"`
	BucketSize  int    `json:"bucket_size"`
	Lines       int    `json:"lines"`
	Offsets     int    `json:"offsets"`
	Compression string `json:"compression"`
	RawLen      int    `json:"raw_len"`
	BodyLen     int    `json:"body_len"`
	Checksum    uint32 `json:"checksum"`
}

// check rejects header fields that would make decoding allocate or index
// out of range. The checksum only covers the body.
func (h *header) check() error {
	switch {
	case h.BodyLen < 0:
		return fmt.Errorf("%w: body length %d", ErrCorrupt, h.BodyLen)
	case h.Lines < 0:
		return fmt.Errorf("%w: %d lines", ErrCorrupt, h.Lines)
	case h.Offsets < 1 || int64(h.Offsets) > h.FileSize+2:
		return fmt.Errorf("%w: %d offsets for %d bytes", ErrCorrupt, h.Offsets, h.FileSize)
	case h.RawLen < 0 || int64(h.RawLen) > int64(h.Offsets)*binary.MaxVarintLen64:
		return fmt.Errorf("%w: raw length %d for %d offsets", ErrCorrupt, h.RawLen, h.Offsets)
	}
	return nil
}

func (h *header) matches(m Meta) bool {
	return h.FileSize == m.FileSize &&
		h.ModTime == m.ModTime &&
		h.BucketSize == m.BucketSize &&
		bytes.Equal(h.Separator, m.Separator)
}

// Encode serializes idx with the given header codec and body compression.
func Encode(w io.Writer, idx *Index, meta Meta, comp Compression, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}

	raw := make([]byte, 0, len(idx.Offsets)*2)
	prev := int64(0)
	for _, off := range idx.Offsets {
		raw = binary.AppendUvarint(raw, uint64(off-prev))
		prev = off
	}

	body, err := compress(raw, comp)
	if errors.Is(err, errIncompressible) {
		body, comp = raw, CompressionNone
	} else if err != nil {
		return err
	}

	h := header{
		Version:     formatVersion,
		FileSize:    meta.FileSize,
		ModTime:     meta.ModTime,
		Separator:   meta.Separator,
		BucketSize:  idx.BucketSize,
		Lines:       idx.Lines,
		Offsets:     len(idx.Offsets),
		Compression: comp.String(),
		RawLen:      len(raw),
		BodyLen:     len(body),
		Checksum:    crc32.ChecksumIEEE(body),
	}
	hb, err := c.Marshal(h)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(byte(len(c.Name())))
	buf.WriteString(c.Name())
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(hb)))
	buf.Write(hb)
	buf.Write(body)

	_, err = w.Write(buf.Bytes())
	return err
}

// Decode parses a sidecar and checks it against want.
func Decode(data []byte, want Meta) (*Index, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	p := data[len(magic):]

	nameLen := int(p[0])
	p = p[1:]
	if len(p) < nameLen+4 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	c, ok := codec.ByName(string(p[:nameLen]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, p[:nameLen])
	}
	p = p[nameLen:]

	hLen := int(binary.LittleEndian.Uint32(p))
	p = p[4:]
	if len(p) < hLen {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	var h header
	if err := c.Unmarshal(p[:hLen], &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	p = p[hLen:]

	if h.Version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrMismatch, h.Version)
	}
	if !h.matches(want) {
		return nil, ErrMismatch
	}
	if err := h.check(); err != nil {
		return nil, err
	}
	if len(p) != h.BodyLen || crc32.ChecksumIEEE(p) != h.Checksum {
		return nil, fmt.Errorf("%w: checksum", ErrCorrupt)
	}

	comp, err := ParseCompression(h.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	raw, err := decompress(p, comp, h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	offsets := make([]int64, 0, h.Offsets)
	prev := int64(0)
	for len(raw) > 0 {
		d, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad varint", ErrCorrupt)
		}
		prev += int64(d)
		offsets = append(offsets, prev)
		raw = raw[n:]
	}

	idx := &Index{Offsets: offsets, Lines: h.Lines, BucketSize: h.BucketSize}
	if len(offsets) != h.Offsets {
		return nil, fmt.Errorf("%w: %d offsets, want %d", ErrCorrupt, len(offsets), h.Offsets)
	}
	if err := idx.Validate(h.FileSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return idx, nil
}

// Save replaces the sidecar at path with idx. Missing directories are
// created and a failed save leaves any previous sidecar in place.
func Save(fsys fs.FileSystem, path string, idx *Index, meta Meta, comp Compression, c codec.Codec) error {
	return fs.WriteAtomic(fsys, path, 0o644, func(w io.Writer) error {
		return Encode(w, idx, meta, comp, c)
	})
}

// Load reads the sidecar at path and checks it against want.
func Load(fsys fs.FileSystem, path string, want Meta) (*Index, error) {
	f, err := fs.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Decode(data, want)
}
