package main

import "testing"

func TestEncodeLeb128Unsigned(t *testing.T) {
	cases := []struct {
		val  int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, c := range cases {
		got := encodeLeb128(c.val, false)
		if !bytesEqual(got, c.want) {
			t.Errorf("encodeLeb128(%d, false) = % x, want % x", c.val, got, c.want)
		}
	}
}

func TestEncodeLeb128Signed(t *testing.T) {
	cases := []struct {
		val  int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
		{63, []byte{0x3f}},
		{-64, []byte{0x40}},
	}
	for _, c := range cases {
		got := encodeLeb128(c.val, true)
		if !bytesEqual(got, c.want) {
			t.Errorf("encodeLeb128(%d, true) = % x, want % x", c.val, got, c.want)
		}
	}
}

func TestRegisterFileRejectsIndexZero(t *testing.T) {
	d := newDwarfLineState()
	if err := d.RegisterFile(0, "a.s"); err == nil {
		t.Fatalf(".file 0 must be rejected")
	}
	if err := d.RegisterFile(1, "a.s"); err != nil {
		t.Fatalf(".file 1: %v", err)
	}
	if d.Files[1].Path != "a.s" {
		t.Fatalf("Files[1].Path = %q, want a.s", d.Files[1].Path)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
