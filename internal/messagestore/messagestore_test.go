package messagestore

import (
	"encoding/base64"
	"testing"
)

func TestDecodeAttachmentDataURL(t *testing.T) {
	raw := []byte("hello world")
	encoded := base64.StdEncoding.EncodeToString(raw)
	dataURL := []byte("data:text/plain;base64," + encoded)

	got := decodeAttachmentData(dataURL)
	if string(got) != string(raw) {
		t.Errorf("decodeAttachmentData(%q) = %q, want %q", dataURL, got, raw)
	}
}

func TestDecodeAttachmentDataAlreadyRaw(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03}
	got := decodeAttachmentData(raw)
	if string(got) != string(raw) {
		t.Errorf("decodeAttachmentData(raw) = %v, want %v", got, raw)
	}
}

func TestDecodeAttachmentDataInvalidBase64(t *testing.T) {
	malformed := []byte("data:text/plain;base64,not-valid-base64!!!")
	got := decodeAttachmentData(malformed)
	if string(got) != string(malformed) {
		t.Errorf("decodeAttachmentData(malformed) should fall back to input unchanged")
	}
}
