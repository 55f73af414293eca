package keys

import (
	"errors"
	"testing"

	"github.com/shaiso/redular/internal/domain"
)

func TestMakeKeys_Deterministic(t *testing.T) {
	c := NewCodec("inst1")

	cases := []struct {
		name   string
		global bool
		id     string
	}{
		{"test", false, "x"},
		{"goodbye", true, "abc-123"},
		{"ns:with:colons", false, "id1"},
	}

	for _, tc := range cases {
		a, err := c.MakeKeys(tc.name, tc.global, tc.id)
		if err != nil {
			t.Fatalf("MakeKeys(%q): unexpected error: %v", tc.name, err)
		}
		b, err := c.MakeKeys(tc.name, tc.global, tc.id)
		if err != nil {
			t.Fatalf("MakeKeys(%q): unexpected error: %v", tc.name, err)
		}
		if a != b {
			t.Errorf("MakeKeys(%q) not deterministic: %+v != %+v", tc.name, a, b)
		}
	}
}

func TestMakeKeys_Format(t *testing.T) {
	c := NewCodec("inst1")

	k, err := c.MakeKeys("test", false, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.Event != "redular:inst1:test:x" {
		t.Errorf("unexpected event key %q", k.Event)
	}
	if k.Data != "redular-data:inst1:test:x" {
		t.Errorf("unexpected data key %q", k.Data)
	}

	g, err := c.MakeKeys("test", true, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Event != "redular:global:test:x" {
		t.Errorf("unexpected global event key %q", g.Event)
	}
}

func TestMakeKeys_GeneratesID(t *testing.T) {
	c := NewCodec("inst1")

	a, err := c.MakeKeys("test", false, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.MakeKeys("test", false, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Event == b.Event {
		t.Errorf("expected distinct generated ids, got %q twice", a.Event)
	}

	ref, err := Decode(a.Event)
	if err != nil {
		t.Fatalf("generated key must decode: %v", err)
	}
	if ref.ID == "" {
		t.Error("generated id should not be empty")
	}
}

func TestMakeKeys_Invalid(t *testing.T) {
	c := NewCodec("inst1")

	if _, err := c.MakeKeys("", false, "x"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("empty name: expected ErrMalformedKey, got %v", err)
	}
	if _, err := c.MakeKeys("test", false, "a:b"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("id with colon: expected ErrMalformedKey, got %v", err)
	}
	if _, err := NewCodec("bad:scope").MakeKeys("test", false, "x"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("scope with colon: expected ErrMalformedKey, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	ref, err := Decode("redular:inst1:ns:with:colons:id1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.EventRef{Scope: "inst1", Name: "ns:with:colons", ID: "id1"}
	if ref != want {
		t.Errorf("expected %+v, got %+v", want, ref)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	c := NewCodec("inst1")
	k, err := c.MakeKeys("ping", true, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := Decode(k.Event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Scope != domain.GlobalScope || ref.Name != "ping" || ref.ID != "42" {
		t.Errorf("unexpected ref %+v", ref)
	}

	dref, err := DecodeData(k.Data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dref != ref {
		t.Errorf("data ref %+v != event ref %+v", dref, ref)
	}
}

func TestDecode_Malformed(t *testing.T) {
	malformed := []string{
		"",
		"redular",
		"redular:",
		"redular:inst1",
		"redular:inst1:test",
		"redular::test:x",
		"redular:inst1::x",
		"redular:inst1:test:",
		"redular-data:inst1:test:x",
		"other:inst1:test:x",
		"session:abc",
	}

	for _, key := range malformed {
		if _, err := Decode(key); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("Decode(%q): expected ErrMalformedKey, got %v", key, err)
		}
		if IsEventKey(key) {
			t.Errorf("IsEventKey(%q) should be false", key)
		}
	}
}

func TestNamespaceSubstitution(t *testing.T) {
	data, err := DataKeyFor("redular:inst1:test:x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != "redular-data:inst1:test:x" {
		t.Errorf("unexpected data key %q", data)
	}

	event, err := EventKeyFor(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != "redular:inst1:test:x" {
		t.Errorf("unexpected event key %q", event)
	}

	if _, err := DataKeyFor("redular-data:inst1:test:x"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("DataKeyFor on data key: expected ErrMalformedKey, got %v", err)
	}
	if _, err := EventKeyFor("redular:inst1:test:x"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("EventKeyFor on event key: expected ErrMalformedKey, got %v", err)
	}
}
