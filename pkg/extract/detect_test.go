package extract

import "testing"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Format
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0}, FormatJPEG},
		{"heic", []byte("\x00\x00\x00\x18ftypheic"), FormatHEIF},
		{"heix", []byte("\x00\x00\x00\x18ftypheix"), FormatHEIF},
		{"mif1", []byte("\x00\x00\x00\x18ftypmif1"), FormatHEIF},
		{"avif", []byte("\x00\x00\x00\x18ftypavif"), FormatHEIF},
		{"unknown brand", []byte("\x00\x00\x00\x18ftypmp42"), FormatUnsupported},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x00"), FormatUnsupported},
		{"empty", nil, FormatUnsupported},
		{"too short", []byte{0x00, 0x00}, FormatUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.head); got != tt.want {
				t.Errorf("DetectFormat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	if FormatJPEG.String() != "jpeg" || FormatHEIF.String() != "heif" || FormatUnsupported.String() != "unsupported" {
		t.Error("Format.String mapping is off")
	}
}
