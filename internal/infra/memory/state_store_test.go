package memory

import "testing"

func TestStateStoreRoundTrip(t *testing.T) {
	store := NewStateStore()

	if _, ok := store.ReadState("ns"); ok {
		t.Fatalf("expected absent state")
	}

	store.WriteState("ns", []byte(`{"v":1}`))
	data, ok := store.ReadState("ns")
	if !ok || string(data) != `{"v":1}` {
		t.Fatalf("unexpected read: %q ok=%v", data, ok)
	}

	store.DeleteState("ns")
	if _, ok := store.ReadState("ns"); ok {
		t.Fatalf("expected state removed")
	}
}

func TestStateStoreNamespacesAreIsolated(t *testing.T) {
	store := NewStateStore()
	store.WriteState("a", []byte("one"))
	store.WriteState("b", []byte("two"))

	data, _ := store.ReadState("a")
	if string(data) != "one" {
		t.Fatalf("namespace a clobbered: %q", data)
	}
	store.DeleteState("a")
	if _, ok := store.ReadState("b"); !ok {
		t.Fatalf("deleting a must not touch b")
	}
}
