package transport

import (
	"bytes"
	"testing"
)

func TestPeekDestinationCIDLongHeader(t *testing.T) {
	dcid := []byte{1, 2, 3, 4}
	scid := []byte{5, 6}
	b := []byte{0xc0} // long header, Initial
	b = append(b, 0xff, 0x00, 0x00, 0x1b) // version
	b = append(b, byte(len(dcid)))
	b = append(b, dcid...)
	b = append(b, byte(len(scid)))
	b = append(b, scid...)
	b = append(b, 0x00) // empty token length
	b = append(b, 0x01, 0x00) // payload length varint + 1 placeholder byte

	got, err := PeekDestinationCID(b, 12)
	if err != nil {
		t.Fatalf("PeekDestinationCID: %v", err)
	}
	if !bytes.Equal(got, dcid) {
		t.Fatalf("dcid = %x, want %x", got, dcid)
	}
}

func TestPeekDestinationCIDShortHeader(t *testing.T) {
	dcid := []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9} // 12 bytes
	b := []byte{0x40}
	b = append(b, dcid...)
	b = append(b, 0x00) // pn + payload placeholder

	got, err := PeekDestinationCID(b, len(dcid))
	if err != nil {
		t.Fatalf("PeekDestinationCID: %v", err)
	}
	if !bytes.Equal(got, dcid) {
		t.Fatalf("dcid = %x, want %x", got, dcid)
	}
}

func TestPeekDestinationCIDTooShort(t *testing.T) {
	if _, err := PeekDestinationCID(nil, 12); err == nil {
		t.Fatalf("empty datagram should fail to parse")
	}
}
