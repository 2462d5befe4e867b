// Package mapcache persists an imported Map to disk under a stable
// filename scheme so later runs can skip re-parsing the OSM extract.
// Binary framing (magic bytes + version header + CRC32 trailer + atomic
// temp-file-then-rename write) is grounded on the teacher's
// pkg/graph/binary.go. Unlike the teacher, the payload is encoded with
// encoding/gob rather than unsafe.Slice zero-copy arrays: the teacher's
// zero-copy path is specific to fixed-width CSR uint32/float64 slices,
// whereas a cached Map here is a Building slice plus a variable-shape
// adjacency map — shapes gob already handles without hand-rolled framing.
package mapcache

import (
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

// ErrCacheMiss is returned (wrapped) by Load whenever the cache cannot be
// used as-is: a missing file, a decode failure, a magic/version mismatch,
// or a checksum mismatch. Callers must treat it as "rebuild", never fail.
var ErrCacheMiss = errors.New("mapcache: cache miss")

const (
	buildingsMagic = "GRAPHBLD"
	graphMagic     = "GRAPHGPH"
	formatVersion  = uint32(1)
)

type fileHeader struct {
	Magic   [8]byte
	Version uint32
}

// Paths returns the stable cache filenames for extractPath under dir,
// e.g. dir/NNMap-map.dmp and dir/NNMap-gph.dmp for an extract
// "NNMap.pbf".
func Paths(dir, extractPath string) (mapPath, graphPath string) {
	base := filepath.Base(extractPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"-map.dmp"), filepath.Join(dir, stem+"-gph.dmp")
}

// Save writes m's buildings and adjacency map to the cache files for
// extractPath under dir. dir must already exist.
func Save(dir, extractPath string, m *citymap.Map) error {
	mapPath, graphPath := Paths(dir, extractPath)

	if err := writeFramed(mapPath, buildingsMagic, m.Buildings()); err != nil {
		return fmt.Errorf("mapcache: save buildings: %w", err)
	}
	if err := writeFramed(graphPath, graphMagic, m.Nodes()); err != nil {
		return fmt.Errorf("mapcache: save graph: %w", err)
	}
	return nil
}

// Load reconstructs a Map from the cache files for extractPath under dir.
// Any failure is reported as (wrapped) ErrCacheMiss — the caller should
// fall back to a fresh import, per spec.md §4.7.
func Load(dir, extractPath string) (*citymap.Map, error) {
	mapPath, graphPath := Paths(dir, extractPath)

	var buildings []model.Building
	if err := readFramed(mapPath, buildingsMagic, &buildings); err != nil {
		return nil, err
	}

	var adj map[model.NodeID]map[model.NodeID]float64
	if err := readFramed(graphPath, graphMagic, &adj); err != nil {
		return nil, err
	}

	return citymap.New(buildings, routegraph.FromAdjacency(adj)), nil
}

// Recache deletes dir wholesale and recreates it empty, forcing every
// subsequent Load to miss.
func Recache(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("mapcache: recache: remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mapcache: recache: create %s: %w", dir, err)
	}
	return nil
}

func writeFramed(path, magic string, payload any) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op once renamed
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	copy(hdr.Magic[:], magic)
	hdr.Version = formatVersion
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := gob.NewEncoder(cw).Encode(payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if err := binary.Write(f, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func readFramed(path, magic string, payload any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrCacheMiss, path, err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: read header: %v", ErrCacheMiss, err)
	}
	if string(hdr.Magic[:len(magic)]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrCacheMiss, hdr.Magic)
	}
	if hdr.Version != formatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCacheMiss, hdr.Version)
	}

	if err := gob.NewDecoder(cr).Decode(payload); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrCacheMiss, err)
	}

	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return fmt.Errorf("%w: read checksum: %v", ErrCacheMiss, err)
	}
	if storedCRC != cr.hash.Sum32() {
		return fmt.Errorf("%w: checksum mismatch", ErrCacheMiss)
	}

	return nil
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}

// ReadByte makes crc32Reader an io.ByteReader, so gob.NewDecoder reads from
// it directly instead of wrapping it in a bufio.Reader that would read past
// the payload into the checksum trailer.
func (cr *crc32Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(cr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}
