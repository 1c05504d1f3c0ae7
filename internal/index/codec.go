package index

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gxPan1006/meme/internal/domain"
)

// Vector container layout, gzip-compressed:
//
//	magic "MEMEVEC1"
//	uint32 rows, uint32 dim (little endian)
//	rows*dim float32 matrix, row-major
//	rows length-prefixed UTF-8 query texts (uint32 length each)
//
// The record metadata lives in a sibling JSON file so it stays readable and
// diffable; the two files are only valid as a pair.
const vectorMagic = "MEMEVEC1"

const (
	maxRows    = 1 << 24
	maxDim     = 1 << 16
	maxTextLen = 1 << 24
)

// RecordsPath returns the sibling JSON path for a vector container path:
// the extension is swapped for ".json".
func RecordsPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
}

// Save writes the paired artifacts: record metadata to the sibling JSON path
// and the embedding matrix plus query texts to the vector container at path.
func (vi *VectorIndex) Save(path string) error {
	if vi.matrix == nil {
		return fmt.Errorf("save: %w", ErrNotBuilt)
	}
	jsonPath := RecordsPath(path)
	if jsonPath == path {
		return fmt.Errorf("save: vector path %q collides with its records path", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(vi.records); err != nil {
		return fmt.Errorf("save: encode records: %w", err)
	}
	if err := os.WriteFile(jsonPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save: write records: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	zw := gzip.NewWriter(f)
	if err := writeVectors(zw, vi.matrix, vi.texts); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("save: write vectors: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("save: flush vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save: close %s: %w", path, err)
	}
	return nil
}

// LoadFile restores an index from the paired artifacts written by Save. The
// record count must match the matrix row count, otherwise the pair is
// rejected as corrupt.
func (vi *VectorIndex) LoadFile(path string) error {
	data, err := os.ReadFile(RecordsPath(path))
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	var records []domain.MemeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("load: decode records: %v: %w", err, ErrCorrupt)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer f.Close()
	matrix, texts, err := readVectors(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	if len(records) != len(matrix) {
		return fmt.Errorf("load %s: %d records but %d vector rows: %w", path, len(records), len(matrix), ErrCorrupt)
	}
	vi.records = records
	vi.texts = texts
	vi.matrix = matrix
	return nil
}

func writeVectors(w io.Writer, matrix [][]float32, texts []string) error {
	if _, err := w.Write([]byte(vectorMagic)); err != nil {
		return err
	}
	dim := 0
	if len(matrix) > 0 {
		dim = len(matrix[0])
	}
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(matrix)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(dim))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	row := make([]byte, dim*4)
	for i, vec := range matrix {
		if len(vec) != dim {
			return fmt.Errorf("row %d has dimension %d, want %d", i, len(vec), dim)
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(row[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}

	var size [4]byte
	for _, text := range texts {
		binary.LittleEndian.PutUint32(size[:], uint32(len(text)))
		if _, err := w.Write(size[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(r io.Reader) (matrix [][]float32, texts []string, err error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip: %v: %w", err, ErrCorrupt)
	}
	defer zr.Close()

	magic := make([]byte, len(vectorMagic))
	if _, err := io.ReadFull(zr, magic); err != nil {
		return nil, nil, fmt.Errorf("header: %v: %w", err, ErrCorrupt)
	}
	if string(magic) != vectorMagic {
		return nil, nil, fmt.Errorf("bad magic %q: %w", magic, ErrCorrupt)
	}
	var header [8]byte
	if _, err := io.ReadFull(zr, header[:]); err != nil {
		return nil, nil, fmt.Errorf("header: %v: %w", err, ErrCorrupt)
	}
	rows := binary.LittleEndian.Uint32(header[0:4])
	dim := binary.LittleEndian.Uint32(header[4:8])
	if rows > maxRows || dim > maxDim {
		return nil, nil, fmt.Errorf("implausible shape %dx%d: %w", rows, dim, ErrCorrupt)
	}

	matrix = make([][]float32, rows)
	row := make([]byte, dim*4)
	for i := range matrix {
		if _, err := io.ReadFull(zr, row); err != nil {
			return nil, nil, fmt.Errorf("matrix row %d: %v: %w", i, err, ErrCorrupt)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[j*4:]))
		}
		matrix[i] = vec
	}

	texts = make([]string, rows)
	var size [4]byte
	for i := range texts {
		if _, err := io.ReadFull(zr, size[:]); err != nil {
			return nil, nil, fmt.Errorf("text %d: %v: %w", i, err, ErrCorrupt)
		}
		n := binary.LittleEndian.Uint32(size[:])
		if n > maxTextLen {
			return nil, nil, fmt.Errorf("text %d: implausible length %d: %w", i, n, ErrCorrupt)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(zr, b); err != nil {
			return nil, nil, fmt.Errorf("text %d: %v: %w", i, err, ErrCorrupt)
		}
		texts[i] = string(b)
	}
	return matrix, texts, nil
}
