package extract

import (
	"bytes"
	"encoding/binary"
)

// HEIC/HEIF extraction: walk the ISO base media box structure to the
// embedded Exif item (meta -> iinf for the item id, iloc for its file
// offset), then decode that block with the same tier chain JPEG uses.
// Files with a damaged box table fall back to a signature scan, the
// lowest-effort parse that still recovers most of them.

// FromHEIF extracts metadata from an ISO-BMFF image. A structurally
// valid container without an Exif item is not an error; a container
// whose box table cannot be walked and that holds no recognizable EXIF
// signature is.
func FromHEIF(data []byte) (Fields, error) {
	payload, found, structOK := heifExifPayload(data)
	if found {
		if tiffData := exifItemTIFF(payload); tiffData != nil {
			return tiffFields(tiffData), nil
		}
		// item located but its payload is mangled; try the raw scan
	}
	if tiffData := bruteExifScan(data); tiffData != nil {
		return tiffFields(tiffData), nil
	}
	if structOK {
		return Fields{Orientation: 1}, nil
	}
	return Fields{}, ErrCorruptContainer
}

// tiffFields runs the fallback chain directly over a raw TIFF block.
func tiffFields(tiffData []byte) Fields {
	return runStrategies(tiffData, []strategy{
		{"raw", parseTIFF},
		{"exif-primary", primaryIFDFields},
		{"exif-walk", walkAllFields},
	})
}

type bmffBox struct {
	typ     string
	payload []byte
}

// parseBoxes splits a byte range into its box sequence. ok is false
// when a box size runs past the buffer or is shorter than its header.
func parseBoxes(data []byte) ([]bmffBox, bool) {
	var out []bmffBox
	pos := 0
	for pos+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		hdr := 8
		switch size {
		case 0:
			size = len(data) - pos
		case 1:
			if pos+16 > len(data) {
				return out, false
			}
			size64 := binary.BigEndian.Uint64(data[pos+8 : pos+16])
			if size64 > uint64(len(data)-pos) {
				return out, false
			}
			size = int(size64)
			hdr = 16
		}
		if size < hdr || pos+size > len(data) {
			return out, false
		}
		out = append(out, bmffBox{typ: typ, payload: data[pos+hdr : pos+size]})
		pos += size
	}
	return out, true
}

// heifExifPayload locates the Exif item's bytes via the meta box.
// structOK reports whether the box tables parsed cleanly, so the
// caller can tell "no EXIF item" apart from "unreadable container".
func heifExifPayload(data []byte) (payload []byte, found, structOK bool) {
	boxes, ok := parseBoxes(data)
	structOK = ok
	for _, b := range boxes {
		if b.typ != "meta" || len(b.payload) < 4 {
			continue
		}
		// meta is a FullBox: 4 bytes of version/flags before children
		children, cok := parseBoxes(b.payload[4:])
		if !cok {
			structOK = false
		}
		var exifID uint32
		var iloc []byte
		for _, c := range children {
			switch c.typ {
			case "iinf":
				exifID = exifItemID(c.payload)
			case "iloc":
				iloc = c.payload
			}
		}
		if exifID == 0 || iloc == nil {
			continue
		}
		off, length, lok := itemLocation(iloc, exifID)
		if !lok || length < 4 || off+length > uint64(len(data)) {
			structOK = false
			continue
		}
		return data[off : off+length], true, structOK
	}
	return nil, false, structOK
}

// exifItemID finds the item id declared with type "Exif" in an iinf
// box payload, or 0.
func exifItemID(p []byte) uint32 {
	if len(p) < 6 {
		return 0
	}
	version := p[0]
	start := 6 // version/flags + 16-bit entry count
	if version > 0 {
		start = 8
	}
	if start > len(p) {
		return 0
	}
	entries, _ := parseBoxes(p[start:])
	for _, e := range entries {
		if e.typ != "infe" || len(e.payload) < 12 {
			continue
		}
		ep := e.payload
		switch ep[0] {
		case 2:
			if string(ep[8:12]) == "Exif" {
				return uint32(binary.BigEndian.Uint16(ep[4:6]))
			}
		case 3:
			if len(ep) >= 14 && string(ep[10:14]) == "Exif" {
				return binary.BigEndian.Uint32(ep[4:8])
			}
		}
	}
	return 0
}

// itemLocation resolves an item id to its absolute file offset and
// length using the iloc box (first extent, construction method 0).
func itemLocation(p []byte, id uint32) (off, length uint64, ok bool) {
	if len(p) < 8 {
		return 0, 0, false
	}
	version := p[0]
	offSize := int(p[4] >> 4)
	lenSize := int(p[4] & 0x0F)
	baseSize := int(p[5] >> 4)
	idxSize := 0
	if version == 1 || version == 2 {
		idxSize = int(p[5] & 0x0F)
	}

	pos := 6
	var count int
	if version < 2 {
		count = int(binary.BigEndian.Uint16(p[pos : pos+2]))
		pos += 2
	} else {
		if len(p) < 10 {
			return 0, 0, false
		}
		count = int(binary.BigEndian.Uint32(p[pos : pos+4]))
		pos += 4
	}

	for i := 0; i < count; i++ {
		var itemID uint32
		if version < 2 {
			if pos+2 > len(p) {
				return 0, 0, false
			}
			itemID = uint32(binary.BigEndian.Uint16(p[pos : pos+2]))
			pos += 2
		} else {
			if pos+4 > len(p) {
				return 0, 0, false
			}
			itemID = binary.BigEndian.Uint32(p[pos : pos+4])
			pos += 4
		}
		if version == 1 || version == 2 {
			pos += 2 // construction method
		}
		pos += 2 // data reference index
		base, bok := readUintN(p, pos, baseSize)
		if !bok {
			return 0, 0, false
		}
		pos += baseSize
		if pos+2 > len(p) {
			return 0, 0, false
		}
		extents := int(binary.BigEndian.Uint16(p[pos : pos+2]))
		pos += 2
		for e := 0; e < extents; e++ {
			pos += idxSize
			eoff, ok1 := readUintN(p, pos, offSize)
			pos += offSize
			elen, ok2 := readUintN(p, pos, lenSize)
			pos += lenSize
			if !ok1 || !ok2 {
				return 0, 0, false
			}
			if itemID == id && e == 0 {
				return base + eoff, elen, true
			}
		}
	}
	return 0, 0, false
}

// readUintN reads an n-byte big-endian unsigned value; n of 0 is a
// legal "field absent" encoding and reads as 0.
func readUintN(p []byte, pos, n int) (uint64, bool) {
	if n == 0 {
		return 0, true
	}
	if n != 4 && n != 8 || pos+n > len(p) {
		return 0, false
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(p[pos+i])
	}
	return v, true
}

// exifItemTIFF strips the Exif item's framing: a 4-byte offset to the
// TIFF header, usually pointing past an "Exif\0\0" marker. Damaged
// framing degrades to a byte-order-mark scan.
func exifItemTIFF(payload []byte) []byte {
	if len(payload) < 4 {
		return nil
	}
	skip := int(binary.BigEndian.Uint32(payload[:4]))
	start := 4 + skip
	if start >= 0 && start+8 <= len(payload) && isByteOrderMark(payload[start:]) {
		return payload[start:]
	}
	for i := 4; i+8 <= len(payload) && i < 4+64; i++ {
		if isByteOrderMark(payload[i:]) {
			return payload[i:]
		}
	}
	return nil
}

func isByteOrderMark(d []byte) bool {
	return bytes.HasPrefix(d, []byte("II")) || bytes.HasPrefix(d, []byte("MM"))
}
