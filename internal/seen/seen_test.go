package seen

import "testing"

func TestAddAndHas(t *testing.T) {
	s := New(0)
	k := Key{Seq: 42, Sender: "10.0.0.1:5000"}

	if s.Has(k) {
		t.Fatal("fresh store should not have key")
	}
	if !s.Add(k) {
		t.Fatal("first Add should return true (new)")
	}
	if !s.Has(k) {
		t.Fatal("should have key after Add")
	}
	if s.Add(k) {
		t.Fatal("second Add should return false (duplicate)")
	}
}

func TestSameSequenceDifferentSenders(t *testing.T) {
	s := New(0)
	a := Key{Seq: 7, Sender: "10.0.0.1:5000"}
	b := Key{Seq: 7, Sender: "10.0.0.2:5000"}

	if !s.Add(a) || !s.Add(b) {
		t.Fatal("same sequence from different senders are distinct frames")
	}
}

func TestBoundClearsStore(t *testing.T) {
	s := New(10)
	for i := 0; i < 10; i++ {
		s.Add(Key{Seq: uint16(i), Sender: "peer"})
	}
	if s.Len() != 10 {
		t.Fatalf("len = %d, want 10", s.Len())
	}

	// The 11th entry trips the bound: everything clears, then it is added.
	if !s.Add(Key{Seq: 10, Sender: "peer"}) {
		t.Fatal("add past bound should still record the new key")
	}
	if s.Len() != 1 {
		t.Fatalf("len after clear = %d, want 1", s.Len())
	}
	if s.Has(Key{Seq: 0, Sender: "peer"}) {
		t.Fatal("old keys should be gone after clear")
	}

	// Documented limitation: a redelivery of an old frame now looks new.
	if !s.Add(Key{Seq: 0, Sender: "peer"}) {
		t.Fatal("post-clear redelivery is treated as new")
	}
}
