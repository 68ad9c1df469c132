package canon

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/netweave-xyz/go-netweave/petri"
)

func handoffNet(t *testing.T) *petri.Net {
	t.Helper()
	net, err := petri.Build("handoff").
		Chain("start", "send", "sent").
		Done()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return net
}

func TestFingerprintDeterminism(t *testing.T) {
	net := handoffNet(t)

	if Digest(net) != Digest(net) {
		t.Error("fingerprinting the same net twice differs")
	}
	if Digest(net) != Digest(net.Copy()) {
		t.Error("deep copy changed the fingerprint")
	}
}

func TestFingerprintInsertionOrderIndependence(t *testing.T) {
	a := petri.NewNet("a")
	ap := a.AddPlace("start")
	aq := a.AddPlace("sent")
	at := a.AddTransition("send", "m!")
	if _, err := a.AddArc(ap, at); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddArc(at, aq); err != nil {
		t.Fatal(err)
	}

	// Same structure declared back to front.
	b := petri.NewNet("b")
	bt := b.AddTransition("send", "m!")
	bq := b.AddPlace("sent")
	bp := b.AddPlace("start")
	if _, err := b.AddArc(bt, bq); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddArc(bp, bt); err != nil {
		t.Fatal(err)
	}

	if Digest(a) != Digest(b) {
		t.Errorf("insertion order changed the fingerprint:\n%s\n%s", Canonical(a), Canonical(b))
	}
}

func TestFingerprintSeparatesStructures(t *testing.T) {
	a := handoffNet(t)
	b := handoffNet(t)
	sent, _ := b.PlaceByName("sent")
	send, _ := b.TransitionByName("send")
	if _, err := b.AddArc(sent, send); err != nil {
		t.Fatal(err)
	}

	if Digest(a) == Digest(b) {
		t.Error("different arc sets share a fingerprint")
	}
}

func TestFingerprintAsMapKey(t *testing.T) {
	net := handoffNet(t)
	visited := map[uint256.Int]bool{}
	visited[Fingerprint(net)] = true

	if !visited[Fingerprint(net.Copy())] {
		t.Error("copy fingerprint missed the visited entry")
	}
}

func TestCanonicalShape(t *testing.T) {
	net := petri.NewNet("tiny")
	p := net.AddPlace("z")
	tr := net.AddTransition("a", "")
	if _, err := net.AddArc(p, tr); err != nil {
		t.Fatal(err)
	}

	want := `{"arcs":[["z","a"]],"places":["z"],"transitions":["a"]}`
	if got := Canonical(net); got != want {
		t.Errorf("Canonical = %s, want %s", got, want)
	}
}

func BenchmarkFingerprint(b *testing.B) {
	net, err := petri.Build("bench").
		Chain("p1", "t1", "p2", "t2", "p3", "t3", "p4", "t4", "p5").
		Done()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Fingerprint(net)
	}
}
