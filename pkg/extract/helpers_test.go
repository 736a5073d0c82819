package extract

import (
	"bytes"
	"encoding/binary"
)

// Synthetic file builders. Fixtures are assembled byte-for-byte so a
// test can hand the parsers exactly the damage it wants to exercise.

// tEntry is one IFD entry to serialize. data is placed out of line
// when longer than the 4-byte value field. subIFD, when >= 0, makes
// the value the offset of that IFD.
type tEntry struct {
	tag    uint16
	typ    uint16
	count  uint32
	inline uint32
	data   []byte
	subIFD int
}

type tIFD struct {
	entries []tEntry
	next    int // index of the next IFD in the chain, -1 for none
}

// buildTIFF serializes IFDs into a little-endian TIFF block. IFDs are
// laid out in slice order, out-of-line data after them.
func buildTIFF(ifds []tIFD) []byte {
	le := binary.LittleEndian

	offsets := make([]int, len(ifds))
	pos := 8
	for i, ifd := range ifds {
		offsets[i] = pos
		pos += 2 + len(ifd.entries)*12 + 4
	}
	dataOffs := map[[2]int]int{}
	for i, ifd := range ifds {
		for j, e := range ifd.entries {
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

	for i, ifd := range ifds {
		p := offsets[i]
		le.PutUint16(buf[p:p+2], uint16(len(ifd.entries)))
		p += 2
		for j, e := range ifd.entries {
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
		if ifd.next >= 0 {
			le.PutUint32(buf[p:p+4], uint32(offsets[ifd.next]))
		}
	}
	return buf
}

// dmsData encodes a degrees/minutes/seconds rational triple. Seconds
// are secNum/secDen so fractional values stay exact.
func dmsData(deg, min, secNum, secDen uint32) []byte {
	le := binary.LittleEndian
	b := make([]byte, 24)
	le.PutUint32(b[0:], deg)
	le.PutUint32(b[4:], 1)
	le.PutUint32(b[8:], min)
	le.PutUint32(b[12:], 1)
	le.PutUint32(b[16:], secNum)
	le.PutUint32(b[20:], secDen)
	return b
}

func asciiEntry(tag uint16, s string) tEntry {
	data := append([]byte(s), 0)
	return tEntry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data, subIFD: -1}
}

func shortEntry(tag uint16, v uint32) tEntry {
	return tEntry{tag: tag, typ: typeShort, count: 1, inline: v, subIFD: -1}
}

func dmsEntry(tag uint16, deg, min, secNum, secDen uint32) tEntry {
	return tEntry{tag: tag, typ: typeRational, count: 3, data: dmsData(deg, min, secNum, secDen), subIFD: -1}
}

// parisGPSIFD holds 48.8566 N, 2.3522 E, the reference coordinate the
// fixtures share. 48°51'23.76" and 2°21'7.92" are exact in decimal.
func parisGPSIFD() tIFD {
	return tIFD{
		entries: []tEntry{
			asciiEntry(tagGPSLatRef, "N"),
			dmsEntry(tagGPSLat, 48, 51, 2376, 100),
			asciiEntry(tagGPSLonRef, "E"),
			dmsEntry(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
}

const (
	parisLat = 48.8566
	parisLon = 2.3522
)

// standardTIFF is the typical camera layout: IFD0 with orientation,
// datetime and a GPS sub-IFD pointer.
func standardTIFF() []byte {
	ifd0 := tIFD{
		entries: []tEntry{
			shortEntry(tagOrientation, 6),
			asciiEntry(tagDateTime, "2021:07:14 12:30:00"),
			{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1},
		},
		next: -1,
	}
	return buildTIFF([]tIFD{ifd0, parisGPSIFD()})
}

// wrapJPEG frames a TIFF block as a minimal JPEG with one APP1 EXIF
// segment.
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

func bmffBoxBytes(typ string, payload []byte) []byte {
	b := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(b)))
	copy(b[4:8], typ)
	copy(b[8:], payload)
	return b
}

// buildHEIC assembles a minimal but structurally complete HEIF file:
// ftyp, a meta box declaring one Exif item, and an mdat holding the
// item bytes.
func buildHEIC(tiff []byte) []byte {
	exifItem := concat([]byte{0, 0, 0, 6}, []byte("Exif\x00\x00"), tiff)
	mdat := bmffBoxBytes("mdat", exifItem)
	ftyp := bmffBoxBytes("ftyp", []byte("heic\x00\x00\x00\x00mif1"))
	infe := bmffBoxBytes("infe", []byte{2, 0, 0, 0, 0, 1, 0, 0, 'E', 'x', 'i', 'f', 0})
	iinf := bmffBoxBytes("iinf", concat([]byte{0, 0, 0, 0, 0, 1}, infe))

	mkIloc := func(off uint32) []byte {
		p := []byte{
			0, 0, 0, 0, // version 0, flags
			0x44, 0x00, // offset/length size 4, base size 0
			0, 1, // item count
			0, 1, // item id
			0, 0, // data reference index
			0, 1, // extent count
		}
		var ext [8]byte
		binary.BigEndian.PutUint32(ext[0:4], off)
		binary.BigEndian.PutUint32(ext[4:8], uint32(len(exifItem)))
		return bmffBoxBytes("iloc", append(p, ext[:]...))
	}

	metaLen := 8 + 4 + len(iinf) + len(mkIloc(0))
	itemOff := uint32(len(ftyp) + metaLen + 8)
	meta := bmffBoxBytes("meta", concat([]byte{0, 0, 0, 0}, iinf, mkIloc(itemOff)))
	return concat(ftyp, meta, mdat)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func near(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
