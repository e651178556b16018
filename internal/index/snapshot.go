package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// Snapshot layout, little-endian:
//
//	magic "DQIX" | version u16 | dim u32 | count u64 | nextID u64
//	count × ( id u64 | dim × f32 | payloadLen u32 | payload JSON )
//	crc32 IEEE of everything above
const (
	snapshotVersion uint16 = 1

	maxPayloadBytes    = 64 << 20
	maxPreallocRecords = 1 << 16
)

var snapshotMagic = [4]byte{'D', 'Q', 'I', 'X'}

// ErrCorruptSnapshot marks a snapshot that cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt index snapshot")

type snapshotHeader struct {
	Magic   [4]byte
	Version uint16
	Dim     uint32
	Count   uint64
	NextID  uint64
}

// WriteTo serializes the index. Inserts are blocked while it runs so the
// snapshot is a consistent point in time.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	crc := crc32.NewIEEE()
	out := io.MultiWriter(bw, crc)

	hdr := snapshotHeader{
		Magic:   snapshotMagic,
		Version: snapshotVersion,
		Dim:     uint32(f.dim), //nolint:gosec // dim is bounded by insert validation
		Count:   uint64(len(f.ids)),
		NextID:  f.nextID,
	}
	if err := binary.Write(out, binary.LittleEndian, hdr); err != nil {
		return cw.n, fmt.Errorf("write header: %w", err)
	}

	vec := make([]byte, 4*f.dim)
	for pos, id := range f.ids {
		if err := binary.Write(out, binary.LittleEndian, id); err != nil {
			return cw.n, fmt.Errorf("write record %d: %w", id, err)
		}
		encodeVector(vec, f.vectors[pos*f.dim:(pos+1)*f.dim])
		if _, err := out.Write(vec); err != nil {
			return cw.n, fmt.Errorf("write record %d: %w", id, err)
		}
		data, err := json.Marshal(f.payloads[pos])
		if err != nil {
			return cw.n, fmt.Errorf("marshal record %d: %w", id, err)
		}
		if err := binary.Write(out, binary.LittleEndian, uint32(len(data))); err != nil { //nolint:gosec // bounded by chunk size
			return cw.n, fmt.Errorf("write record %d: %w", id, err)
		}
		if _, err := out.Write(data); err != nil {
			return cw.n, fmt.Errorf("write record %d: %w", id, err)
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, crc.Sum32()); err != nil {
		return cw.n, fmt.Errorf("write checksum: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("flush snapshot: %w", err)
	}
	return cw.n, nil
}

// ReadFlat decodes a snapshot written by WriteTo. Any structural problem or
// checksum mismatch returns an error wrapping ErrCorruptSnapshot.
func ReadFlat(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)
	crc := crc32.NewIEEE()
	in := io.TeeReader(br, crc)

	var hdr snapshotHeader
	if err := binary.Read(in, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("read header", err)
	}
	if hdr.Magic != snapshotMagic {
		return nil, corrupt("bad magic", nil)
	}
	if hdr.Version != snapshotVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", hdr.Version), nil)
	}
	if hdr.Dim > MaxDimension {
		return nil, corrupt(fmt.Sprintf("dimension %d out of range", hdr.Dim), nil)
	}
	if hdr.Count > 0 && hdr.Dim == 0 {
		return nil, corrupt("records without dimension", nil)
	}

	dim := int(hdr.Dim)
	prealloc := int(min(hdr.Count, maxPreallocRecords)) //nolint:gosec // capped above
	f := &Flat{
		dim:      dim,
		nextID:   hdr.NextID,
		ids:      make([]uint64, 0, prealloc),
		vectors:  make([]float32, 0, prealloc*dim),
		payloads: make([]payload, 0, prealloc),
	}
	if f.nextID == 0 {
		f.nextID = 1
	}

	vec := make([]byte, 4*dim)
	for i := uint64(0); i < hdr.Count; i++ {
		var id uint64
		if err := binary.Read(in, binary.LittleEndian, &id); err != nil {
			return nil, corrupt(fmt.Sprintf("read record %d", i), err)
		}
		if id >= f.nextID {
			return nil, corrupt(fmt.Sprintf("record id %d not below sequence %d", id, f.nextID), nil)
		}
		if _, err := io.ReadFull(in, vec); err != nil {
			return nil, corrupt(fmt.Sprintf("read record %d vector", i), err)
		}
		var size uint32
		if err := binary.Read(in, binary.LittleEndian, &size); err != nil {
			return nil, corrupt(fmt.Sprintf("read record %d payload size", i), err)
		}
		if size > maxPayloadBytes {
			return nil, corrupt(fmt.Sprintf("record %d payload of %d bytes", i, size), nil)
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(in, data); err != nil {
			return nil, corrupt(fmt.Sprintf("read record %d payload", i), err)
		}
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, corrupt(fmt.Sprintf("decode record %d payload", i), err)
		}

		f.ids = append(f.ids, id)
		f.vectors = appendDecoded(f.vectors, vec)
		f.payloads = append(f.payloads, p)
	}

	want := crc.Sum32()
	var got uint32
	if err := binary.Read(br, binary.LittleEndian, &got); err != nil {
		return nil, corrupt("read checksum", err)
	}
	if got != want {
		return nil, corrupt(fmt.Sprintf("checksum mismatch: stored %08x, computed %08x", got, want), nil)
	}
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, corrupt("trailing data after checksum", nil)
	}
	return f, nil
}

func corrupt(msg string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, msg, err)
	}
	return fmt.Errorf("%w: %s", ErrCorruptSnapshot, msg)
}

func encodeVector(dst []byte, v []float32) {
	for i, x := range v {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(x))
	}
}

func appendDecoded(dst []float32, src []byte) []float32 {
	for i := 0; i+4 <= len(src); i += 4 {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(src[i:])))
	}
	return dst
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
