package ring

import "testing"

func TestInRangeFullRingWhenEndpointsEqual(t *testing.T) {
	sp, _ := NewSpace(8)
	a := sp.FromUint64(42)
	for c := uint64(0); c < 256; c++ {
		if !InRange(sp.FromUint64(c), a, a) {
			t.Fatalf("InRange(%d, a, a) = false, want true", c)
		}
	}
}

func TestInRangeHalfOpenArc(t *testing.T) {
	sp, _ := NewSpace(8)
	tests := []struct {
		name    string
		c, a, b uint64
		want    bool
	}{
		{"inside linear arc", 5, 1, 10, true},
		{"equal to upper bound, included", 10, 1, 10, true},
		{"equal to lower bound, excluded", 1, 1, 10, false},
		{"outside linear arc", 20, 1, 10, false},
		{"wrap-around inside", 250, 200, 50, true},
		{"wrap-around outside", 100, 200, 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InRange(sp.FromUint64(tt.c), sp.FromUint64(tt.a), sp.FromUint64(tt.b))
			if got != tt.want {
				t.Errorf("InRange(%d,%d,%d) = %v, want %v", tt.c, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestInRangeExclusiveOr(t *testing.T) {
	sp, _ := NewSpace(8)
	a, b := sp.FromUint64(30), sp.FromUint64(90)
	for c := uint64(0); c < 256; c++ {
		if c == 30 || c == 90 {
			continue
		}
		id := sp.FromUint64(c)
		fwd := InRange(id, a, b)
		rev := InRange(id, b, a)
		if fwd == rev {
			t.Fatalf("InRange(%d,a,b) xor InRange(%d,b,a) failed: fwd=%v rev=%v", c, c, fwd, rev)
		}
	}
}

func TestAddPow2MatchesManualAdd(t *testing.T) {
	sp, _ := NewSpace(8)
	self := sp.FromUint64(10)
	for i := 0; i < 8; i++ {
		got := sp.AddPow2(self, i)
		want := sp.AddMod(self, sp.FromUint64(uint64(1)<<uint(i)))
		if got.Cmp(want) != 0 {
			t.Errorf("AddPow2(10, %d) = %s, want %s", i, got.ToHexString(), want.ToHexString())
		}
	}
}

func TestDistanceRoundTrip(t *testing.T) {
	sp, _ := NewSpace(8)
	a, b := sp.FromUint64(200), sp.FromUint64(50)
	d := Distance(sp, a, b)
	if got := sp.AddMod(a, d); got.Cmp(b) != 0 {
		t.Errorf("a + Distance(a,b) = %s, want %s", got.ToHexString(), b.ToHexString())
	}
}

func TestIDFromStringDeterministic(t *testing.T) {
	sp, _ := NewSpace(160)
	id1 := sp.IDFromString("127.0.0.1:10000")
	id2 := sp.IDFromString("127.0.0.1:10000")
	if !id1.Equal(id2) {
		t.Errorf("IDFromString not deterministic: %s != %s", id1.ToHexString(), id2.ToHexString())
	}
	if len(id1) != sp.ByteLen {
		t.Errorf("IDFromString length = %d, want %d", len(id1), sp.ByteLen)
	}
}

func TestNewSpaceRejectsNonPositiveBits(t *testing.T) {
	if _, err := NewSpace(0); err == nil {
		t.Error("NewSpace(0) should fail")
	}
	if _, err := NewSpace(-1); err == nil {
		t.Error("NewSpace(-1) should fail")
	}
}
