package transport

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 63, 64, 16383, 16384, 1073741823, 1073741824, maxVarint8}
	for _, v := range values {
		n := varintLen(v)
		b := make([]byte, n)
		written := putVarint(b, v)
		if written != n {
			t.Fatalf("putVarint(%d): wrote %d bytes, want %d", v, written, n)
		}
		var got uint64
		read := getVarint(b, &got)
		if read != n {
			t.Fatalf("getVarint(%d): read %d bytes, want %d", v, read, n)
		}
		if got != v {
			t.Fatalf("getVarint round trip: got %d, want %d", got, v)
		}
	}
}

func TestVarintLen(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{maxVarint1, 1},
		{maxVarint1 + 1, 2},
		{maxVarint2, 2},
		{maxVarint2 + 1, 4},
		{maxVarint4, 4},
		{maxVarint4 + 1, 8},
		{maxVarint8, 8},
	}
	for _, c := range cases {
		if got := varintLen(c.v); got != c.want {
			t.Errorf("varintLen(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestGetVarintIncomplete(t *testing.T) {
	b := []byte{0x80, 0x01} // 4-byte varint prefix, only 2 bytes present
	var v uint64
	if n := getVarint(b, &v); n != 0 {
		t.Fatalf("getVarint on truncated input: got n=%d, want 0", n)
	}
}

func TestVarintLenPrefixed(t *testing.T) {
	data := []byte("hello world")
	b := make([]byte, varintLen(uint64(len(data)))+len(data))
	n := putVarintLenPrefixed(b, data)
	if n != len(b) {
		t.Fatalf("putVarintLenPrefixed: wrote %d, want %d", n, len(b))
	}
	got, consumed := getVarintLenPrefixed(b)
	if consumed != n {
		t.Fatalf("getVarintLenPrefixed: consumed %d, want %d", consumed, n)
	}
	if string(got) != string(data) {
		t.Fatalf("getVarintLenPrefixed: got %q, want %q", got, data)
	}
}

func TestGetVarintLenPrefixedTruncated(t *testing.T) {
	b := []byte{0x05, 'h', 'i'} // claims length 5, only 2 bytes follow
	got, n := getVarintLenPrefixed(b)
	if got != nil || n != 0 {
		t.Fatalf("getVarintLenPrefixed on truncated input: got %v, %d, want nil, 0", got, n)
	}
}
