// Package richtext recovers plain message text from the archived rich-text
// blob stored in chat.db's attributedBody column. Rows written by older OS
// versions carry a legacy NSArchiver "streamtyped" payload, newer rows a
// keyed archive (binary plist). Neither format is documented, so decoding is
// best-effort: an ordered chain of strategies where the first success wins.
package richtext

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Strategy attempts to extract plain text from an archived blob.
type Strategy func(data []byte) (string, bool)

// Chain is the default decoding order: legacy typedstream first (most common
// in the wild), then the modern keyed archive, then a raw UTF-8 read.
var Chain = []Strategy{
	DecodeTypedStream,
	DecodeKeyedArchive,
	DecodeUTF8,
}

// Decode runs the default strategy chain over the blob. A false return means
// no strategy could produce usable text; callers fall back to empty text.
func Decode(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	for _, s := range Chain {
		if text, ok := s(data); ok {
			return text, true
		}
	}
	return "", false
}

var typedStreamMagic = []byte("\x04\x0bstreamtyped")

// DecodeTypedStream extracts the NSString payload from a legacy (non-keyed)
// NSArchiver stream. The archived attributed string embeds its backing string
// as an inline object: the bytes "NSString" followed shortly by a '+' type
// token, a variable-length integer, and the UTF-8 text itself.
func DecodeTypedStream(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, typedStreamMagic) {
		return "", false
	}

	idx := bytes.Index(data, []byte("NSString"))
	if idx < 0 {
		return "", false
	}
	rest := data[idx+len("NSString"):]

	// The '+' token sits within a few bytes of the class name; scanning a
	// short window keeps us from matching a '+' inside the message text.
	window := rest
	if len(window) > 16 {
		window = window[:16]
	}
	plus := bytes.IndexByte(window, '+')
	if plus < 0 {
		return "", false
	}

	length, consumed, ok := readStreamInt(rest[plus+1:])
	if !ok {
		return "", false
	}
	start := plus + 1 + consumed
	end := start + length
	if length <= 0 || end > len(rest) {
		return "", false
	}

	text := rest[start:end]
	if !utf8.Valid(text) || strings.TrimSpace(string(text)) == "" {
		return "", false
	}
	return string(text), true
}

// readStreamInt reads a typedstream variable-length integer: values below
// 0x80 are literal, 0x81 prefixes a little-endian uint16, 0x82 a uint32.
func readStreamInt(b []byte) (value, consumed int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch {
	case b[0] < 0x80:
		return int(b[0]), 1, true
	case b[0] == 0x81:
		if len(b) < 3 {
			return 0, 0, false
		}
		return int(binary.LittleEndian.Uint16(b[1:3])), 3, true
	case b[0] == 0x82:
		if len(b) < 5 {
			return 0, 0, false
		}
		return int(binary.LittleEndian.Uint32(b[1:5])), 5, true
	default:
		return 0, 0, false
	}
}

// DecodeKeyedArchive extracts the "NS.string" value from an NSKeyedArchiver
// binary plist. Only the object shapes an archived NSAttributedString
// actually uses are handled (dicts, ASCII and UTF-16 strings).
func DecodeKeyedArchive(data []byte) (string, bool) {
	p, err := parseBplist(data)
	if err != nil {
		return "", false
	}

	for i := 0; i < p.numObjects; i++ {
		keys, vals, ok := p.dictAt(i)
		if !ok {
			continue
		}
		for j, keyRef := range keys {
			key, ok := p.stringAt(keyRef)
			if !ok || key != "NS.string" {
				continue
			}
			val, ok := p.stringAt(vals[j])
			if !ok || strings.TrimSpace(val) == "" {
				continue
			}
			return val, true
		}
	}
	return "", false
}

// DecodeUTF8 interprets the raw bytes as UTF-8 if they are valid and
// non-blank. Last resort for blobs that are plain text in disguise.
func DecodeUTF8(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	s := string(data)
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// --- minimal binary plist reader ---

type bplist struct {
	data       []byte
	offsets    []int
	refSize    int
	numObjects int
}

func parseBplist(data []byte) (*bplist, error) {
	if len(data) < 40 || !bytes.HasPrefix(data, []byte("bplist00")) {
		return nil, fmt.Errorf("not a bplist00")
	}

	trailer := data[len(data)-32:]
	offsetSize := int(trailer[6])
	refSize := int(trailer[7])
	numObjects := int(binary.BigEndian.Uint64(trailer[8:16]))
	tableOffset := int(binary.BigEndian.Uint64(trailer[24:32]))

	if offsetSize < 1 || offsetSize > 8 || refSize < 1 || refSize > 8 {
		return nil, fmt.Errorf("bad trailer sizes")
	}
	// numObjects and tableOffset come off the wire as uint64; after the int
	// conversion they can be negative or large enough to overflow the bounds
	// arithmetic, so each is range-checked on its own first.
	if numObjects <= 0 || numObjects > len(data) {
		return nil, fmt.Errorf("bad object count")
	}
	if tableOffset <= 0 || tableOffset > len(data)-32 || numObjects > (len(data)-32-tableOffset)/offsetSize {
		return nil, fmt.Errorf("bad object table bounds")
	}

	offsets := make([]int, numObjects)
	for i := 0; i < numObjects; i++ {
		off := readBE(data[tableOffset+i*offsetSize : tableOffset+(i+1)*offsetSize])
		if off < 0 || off >= len(data) {
			return nil, fmt.Errorf("object offset out of range")
		}
		offsets[i] = off
	}

	return &bplist{data: data, offsets: offsets, refSize: refSize, numObjects: numObjects}, nil
}

func readBE(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// readCount decodes an object's length nibble, following the extended-int
// form when the nibble is 0xF. Returns the count and bytes consumed after
// the marker byte.
func (p *bplist) readCount(pos int, nibble byte) (count, consumed int, ok bool) {
	if nibble != 0x0F {
		return int(nibble), 0, true
	}
	if pos >= len(p.data) || p.data[pos]&0xF0 != 0x10 {
		return 0, 0, false
	}
	n := 1 << (p.data[pos] & 0x0F)
	if n > 8 || pos+1+n > len(p.data) {
		return 0, 0, false
	}
	// An 8-byte count can fold negative through the int conversion, and any
	// count larger than the blob itself is garbage either way.
	count = readBE(p.data[pos+1 : pos+1+n])
	if count < 0 || count > len(p.data) {
		return 0, 0, false
	}
	return count, 1 + n, true
}

// stringAt decodes object i if it is an ASCII (0x5x) or UTF-16BE (0x6x)
// string.
func (p *bplist) stringAt(i int) (string, bool) {
	if i < 0 || i >= p.numObjects {
		return "", false
	}
	pos := p.offsets[i]
	if pos >= len(p.data) {
		return "", false
	}
	marker := p.data[pos]
	count, consumed, ok := p.readCount(pos+1, marker&0x0F)
	if !ok {
		return "", false
	}
	start := pos + 1 + consumed

	switch marker & 0xF0 {
	case 0x50: // ASCII
		if start+count > len(p.data) {
			return "", false
		}
		return string(p.data[start : start+count]), true
	case 0x60: // UTF-16BE, count is in code units
		if start+count*2 > len(p.data) {
			return "", false
		}
		units := make([]uint16, count)
		for j := 0; j < count; j++ {
			units[j] = binary.BigEndian.Uint16(p.data[start+j*2 : start+j*2+2])
		}
		return string(utf16.Decode(units)), true
	}
	return "", false
}

// dictAt decodes object i if it is a dictionary (0xDx), returning parallel
// key and value object references.
func (p *bplist) dictAt(i int) (keys, vals []int, ok bool) {
	if i < 0 || i >= p.numObjects {
		return nil, nil, false
	}
	pos := p.offsets[i]
	if pos >= len(p.data) {
		return nil, nil, false
	}
	marker := p.data[pos]
	if marker&0xF0 != 0xD0 {
		return nil, nil, false
	}
	count, consumed, ok := p.readCount(pos+1, marker&0x0F)
	if !ok {
		return nil, nil, false
	}
	start := pos + 1 + consumed
	need := count * p.refSize * 2
	if start+need > len(p.data) {
		return nil, nil, false
	}

	keys = make([]int, count)
	vals = make([]int, count)
	for j := 0; j < count; j++ {
		keys[j] = readBE(p.data[start+j*p.refSize : start+(j+1)*p.refSize])
		valStart := start + count*p.refSize
		vals[j] = readBE(p.data[valStart+j*p.refSize : valStart+(j+1)*p.refSize])
	}
	return keys, vals, true
}
