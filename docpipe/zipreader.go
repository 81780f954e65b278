package docpipe

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ZIP signatures per APPNOTE.TXT.
const (
	sigEOCD        = 0x06054b50
	sigCentralDir  = 0x02014b50
	sigLocalHeader = 0x04034b50
)

// zipEntry is one file inside a ZIP container.
type zipEntry struct {
	name        string
	method      uint16 // 0 = stored, 8 = deflate
	compSize    uint32
	uncompSize  uint32
	localOffset uint32
}

// zipArchive gives read access to a ZIP container held fully in memory.
// Office payloads arrive as decoded Base64 buffers, never as files, so the
// stdlib's file-oriented reader is bypassed in favour of a direct central
// directory walk that tolerates trailing garbage.
type zipArchive struct {
	data    []byte
	entries []zipEntry
}

// openZip locates the End-Of-Central-Directory record by scanning backward,
// then walks the central directory entries.
func openZip(data []byte) (*zipArchive, error) {
	if len(data) < 22 {
		return nil, fmt.Errorf("zip: buffer too small (%d bytes)", len(data))
	}

	// EOCD is at most 22 bytes + 65535 comment bytes from the end.
	eocd := -1
	low := len(data) - 22 - 65535
	if low < 0 {
		low = 0
	}
	for i := len(data) - 22; i >= low; i-- {
		if binary.LittleEndian.Uint32(data[i:]) == sigEOCD {
			eocd = i
			break
		}
	}
	if eocd < 0 {
		return nil, fmt.Errorf("zip: end-of-central-directory signature not found")
	}

	entryCount := int(binary.LittleEndian.Uint16(data[eocd+10:]))
	cdSize := int(binary.LittleEndian.Uint32(data[eocd+12:]))
	cdOffset := int(binary.LittleEndian.Uint32(data[eocd+16:]))
	if cdOffset < 0 || cdOffset+cdSize > len(data) {
		return nil, fmt.Errorf("zip: central directory out of range (offset %d size %d)", cdOffset, cdSize)
	}

	ar := &zipArchive{data: data}
	pos := cdOffset
	for i := 0; i < entryCount && pos+46 <= len(data); i++ {
		if binary.LittleEndian.Uint32(data[pos:]) != sigCentralDir {
			break
		}
		method := binary.LittleEndian.Uint16(data[pos+10:])
		compSize := binary.LittleEndian.Uint32(data[pos+20:])
		uncompSize := binary.LittleEndian.Uint32(data[pos+24:])
		nameLen := int(binary.LittleEndian.Uint16(data[pos+28:]))
		extraLen := int(binary.LittleEndian.Uint16(data[pos+30:]))
		commentLen := int(binary.LittleEndian.Uint16(data[pos+32:]))
		localOffset := binary.LittleEndian.Uint32(data[pos+42:])

		if pos+46+nameLen > len(data) {
			break
		}
		ar.entries = append(ar.entries, zipEntry{
			name:        string(data[pos+46 : pos+46+nameLen]),
			method:      method,
			compSize:    compSize,
			uncompSize:  uncompSize,
			localOffset: localOffset,
		})
		pos += 46 + nameLen + extraLen + commentLen
	}

	if len(ar.entries) == 0 {
		return nil, fmt.Errorf("zip: no central directory entries")
	}
	return ar, nil
}

// file returns the decompressed bytes of the named entry, or nil if absent.
func (ar *zipArchive) file(name string) ([]byte, error) {
	for _, e := range ar.entries {
		if e.name == name {
			return ar.read(e)
		}
	}
	return nil, nil
}

// filesMatching returns decompressed entries whose name passes the filter,
// sorted by entry name (worksheet/slide ordering follows file names).
func (ar *zipArchive) filesMatching(match func(string) bool) (names []string, contents [][]byte, err error) {
	for _, e := range ar.entries {
		if !match(e.name) {
			continue
		}
		data, err := ar.read(e)
		if err != nil {
			continue // one unreadable part must not sink the container
		}
		names = append(names, e.name)
		contents = append(contents, data)
	}
	// Sort both slices by name.
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return names[idx[a]] < names[idx[b]] })
	sortedNames := make([]string, len(idx))
	sortedContents := make([][]byte, len(idx))
	for i, j := range idx {
		sortedNames[i] = names[j]
		sortedContents[i] = contents[j]
	}
	return sortedNames, sortedContents, nil
}

// read locates the entry's local header, skips name/extra fields, and
// decompresses the payload.
func (ar *zipArchive) read(e zipEntry) ([]byte, error) {
	off := int(e.localOffset)
	if off+30 > len(ar.data) {
		return nil, fmt.Errorf("zip: local header of %q out of range", e.name)
	}
	if binary.LittleEndian.Uint32(ar.data[off:]) != sigLocalHeader {
		return nil, fmt.Errorf("zip: bad local header signature for %q", e.name)
	}
	nameLen := int(binary.LittleEndian.Uint16(ar.data[off+26:]))
	extraLen := int(binary.LittleEndian.Uint16(ar.data[off+28:]))
	start := off + 30 + nameLen + extraLen
	end := start + int(e.compSize)
	if start > len(ar.data) || end > len(ar.data) {
		return nil, fmt.Errorf("zip: payload of %q out of range", e.name)
	}
	raw := ar.data[start:end]

	switch e.method {
	case 0: // stored
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case 8: // raw deflate
		out, err := inflate(raw, int(e.uncompSize))
		if err == nil {
			return out, nil
		}
		// Some producers mis-mark uncompressed XML as deflated. Accept the
		// raw bytes when they carry plausible XML markers.
		if looksLikeXML(raw) {
			return raw, nil
		}
		return nil, fmt.Errorf("zip: inflate %q: %w", e.name, err)
	default:
		return nil, fmt.Errorf("zip: unsupported compression method %d for %q", e.method, e.name)
	}
}

// inflate decompresses a raw-deflate buffer with a streaming reader.
func inflate(raw []byte, sizeHint int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()

	var buf bytes.Buffer
	if sizeHint > 0 && sizeHint < 1<<28 {
		buf.Grow(sizeHint)
	}
	if _, err := io.Copy(&buf, fr); err != nil {
		// Partial output with trailing corruption is still usable.
		if buf.Len() > 0 {
			return buf.Bytes(), nil
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func looksLikeXML(data []byte) bool {
	s := string(data[:min(len(data), 512)])
	return strings.Contains(s, "<?xml") || strings.Contains(s, "<w:") ||
		strings.Contains(s, "<Relationship") || strings.Contains(s, "<office:")
}
