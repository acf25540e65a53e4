package entities

import "testing"

func TestNamePoolInternsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	pool, err := NewNamePool(dir)
	if err != nil {
		t.Fatalf("NewNamePool: %v", err)
	}
	defer pool.Close()

	off1, err := pool.Intern("Main Street")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	off2, err := pool.Intern("Oak Avenue")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	off3, err := pool.Intern("Main Street")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}

	if off1 != off3 {
		t.Errorf("duplicate name interned twice: %d != %d", off1, off3)
	}
	if off1 == off2 {
		t.Errorf("distinct names collided to the same offset")
	}

	got, err := pool.Lookup(off2)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "Oak Avenue" {
		t.Errorf("Lookup(%d) = %q, want %q", off2, got, "Oak Avenue")
	}
}

func TestNamePoolEmptyNameIsZeroOffset(t *testing.T) {
	dir := t.TempDir()
	pool, err := NewNamePool(dir)
	if err != nil {
		t.Fatalf("NewNamePool: %v", err)
	}
	defer pool.Close()

	off, err := pool.Intern("")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if off != 0 {
		t.Errorf("Intern(\"\") = %d, want 0", off)
	}
}

func TestWayXCodecRoundTrip(t *testing.T) {
	w := WayX{ID: 77, Way: Way{
		Name: 12, Type: WayTertiary, Allow: TransportFoot | TransportBicycle,
		Props: PropPaved | PropFootRoute, Speed: 30, Weight: 7500, Height: 400,
		Width: 250, Length: 12, Incline: -5,
	}}
	buf := make([]byte, WayXCodec.Size())
	WayXCodec.Encode(w, buf)
	got := WayXCodec.Decode(buf)
	if got != w {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, w)
	}
}
