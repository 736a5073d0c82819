// Package exiftest builds small synthetic photo files for tests in
// other packages. Fixtures carry the Paris reference coordinate
// 48.8566 N, 2.3522 E so assertions can share one expected value.
package exiftest

import (
	"bytes"
	"encoding/binary"
)

const (
	ParisLat = 48.8566
	ParisLon = 2.3522
)

const (
	tagGPSLatRef   = 0x0001
	tagGPSLat      = 0x0002
	tagGPSLonRef   = 0x0003
	tagGPSLon      = 0x0004
	tagOrientation = 0x0112
	tagDateTime    = 0x0132
	tagGPSIFD      = 0x8825

	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

type entry struct {
	tag    uint16
	typ    uint16
	count  uint32
	inline uint32
	data   []byte
	subIFD int
}

type ifd struct {
	entries []entry
	next    int
}

// ParisJPEG is a well-formed JPEG whose EXIF block holds the Paris
// coordinate, orientation 6 and capture time 2021-07-14 12:30:00.
func ParisJPEG() []byte {
	return wrapJPEG(standardTIFF())
}

// NoGPSJPEG is a well-formed JPEG with EXIF but no GPS tags.
func NoGPSJPEG() []byte {
	ifd0 := ifd{
		entries: []entry{
			short(tagOrientation, 1),
			ascii(tagDateTime, "2020:01:01 09:00:00"),
		},
		next: -1,
	}
	return wrapJPEG(buildTIFF([]ifd{ifd0}))
}

// BareJPEG has no EXIF block at all.
func BareJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}
}

// ThumbnailGPSJPEG parks the GPS tags in the thumbnail IFD, where
// conventional readers never look.
func ThumbnailGPSJPEG() []byte {
	ifd0 := ifd{entries: []entry{short(tagOrientation, 1)}, next: 1}
	return wrapJPEG(buildTIFF([]ifd{ifd0, parisGPS()}))
}

// ParisHEIC is a structurally complete HEIF file with the Paris
// coordinate in its Exif item.
func ParisHEIC() []byte {
	tiff := standardTIFF()
	exifItem := concat([]byte{0, 0, 0, 6}, []byte("Exif\x00\x00"), tiff)
	mdat := box("mdat", exifItem)
	ftyp := box("ftyp", []byte("heic\x00\x00\x00\x00mif1"))
	infe := box("infe", []byte{2, 0, 0, 0, 0, 1, 0, 0, 'E', 'x', 'i', 'f', 0})
	iinf := box("iinf", concat([]byte{0, 0, 0, 0, 0, 1}, infe))

	mkIloc := func(off uint32) []byte {
		p := []byte{0, 0, 0, 0, 0x44, 0x00, 0, 1, 0, 1, 0, 0, 0, 1}
		var ext [8]byte
		binary.BigEndian.PutUint32(ext[0:4], off)
		binary.BigEndian.PutUint32(ext[4:8], uint32(len(exifItem)))
		return box("iloc", append(p, ext[:]...))
	}
	metaLen := 8 + 4 + len(iinf) + len(mkIloc(0))
	itemOff := uint32(len(ftyp) + metaLen + 8)
	meta := box("meta", concat([]byte{0, 0, 0, 0}, iinf, mkIloc(itemOff)))
	return concat(ftyp, meta, mdat)
}

// CorruptHEIC claims the heic brand but its box table is garbage and
// no EXIF signature appears anywhere.
func CorruptHEIC() []byte {
	return concat(
		box("ftyp", []byte("heic\x00\x00\x00\x00mif1")),
		[]byte{0xFF, 0xFF, 0xFF, 0xFF, 'j', 'u', 'n', 'k', 1, 2, 3},
	)
}

func parisGPS() ifd {
	return ifd{
		entries: []entry{
			ascii(tagGPSLatRef, "N"),
			dms(tagGPSLat, 48, 51, 2376, 100),
			ascii(tagGPSLonRef, "E"),
			dms(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
}

func standardTIFF() []byte {
	ifd0 := ifd{
		entries: []entry{
			short(tagOrientation, 6),
			ascii(tagDateTime, "2021:07:14 12:30:00"),
			{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1},
		},
		next: -1,
	}
	return buildTIFF([]ifd{ifd0, parisGPS()})
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data, subIFD: -1}
}

func short(tag uint16, v uint32) entry {
	return entry{tag: tag, typ: typeShort, count: 1, inline: v, subIFD: -1}
}

func dms(tag uint16, deg, min, secNum, secDen uint32) entry {
	le := binary.LittleEndian
	b := make([]byte, 24)
	le.PutUint32(b[0:], deg)
	le.PutUint32(b[4:], 1)
	le.PutUint32(b[8:], min)
	le.PutUint32(b[12:], 1)
	le.PutUint32(b[16:], secNum)
	le.PutUint32(b[20:], secDen)
	return entry{tag: tag, typ: typeRational, count: 3, data: b, subIFD: -1}
}

func buildTIFF(ifds []ifd) []byte {
	le := binary.LittleEndian

	offsets := make([]int, len(ifds))
	pos := 8
	for i, f := range ifds {
		offsets[i] = pos
		pos += 2 + len(f.entries)*12 + 4
	}
	dataOffs := map[[2]int]int{}
	for i, f := range ifds {
		for j, e := range f.entries {
			if len(e.data) > 4 {
				dataOffs[[2]int{i, j}] = pos
				pos += len(e.data)
			}
		}
	}

	buf := make([]byte, pos)
	buf[0], buf[1] = 'I', 'I'
	le.PutUint16(buf[2:4], 42)
	le.PutUint32(buf[4:8], uint32(offsets[0]))

	for i, f := range ifds {
		p := offsets[i]
		le.PutUint16(buf[p:p+2], uint16(len(f.entries)))
		p += 2
		for j, e := range f.entries {
			le.PutUint16(buf[p:p+2], e.tag)
			le.PutUint16(buf[p+2:p+4], e.typ)
			le.PutUint32(buf[p+4:p+8], e.count)
			switch {
			case e.subIFD >= 0:
				le.PutUint32(buf[p+8:p+12], uint32(offsets[e.subIFD]))
			case len(e.data) > 4:
				off := dataOffs[[2]int{i, j}]
				le.PutUint32(buf[p+8:p+12], uint32(off))
				copy(buf[off:], e.data)
			case e.data != nil:
				copy(buf[p+8:p+12], e.data)
			default:
				le.PutUint32(buf[p+8:p+12], e.inline)
			}
			p += 12
		}
		if f.next >= 0 {
			le.PutUint32(buf[p:p+4], uint32(offsets[f.next]))
		}
	}
	return buf
}

func wrapJPEG(tiff []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	payload := append([]byte("Exif\x00\x00"), tiff...)
	buf.Write([]byte{0xFF, 0xE1})
	length := len(payload) + 2
	buf.WriteByte(byte(length >> 8))
	buf.WriteByte(byte(length))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

func box(typ string, payload []byte) []byte {
	b := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(b)))
	copy(b[4:8], typ)
	copy(b[8:], payload)
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
