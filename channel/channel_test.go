package channel

import (
	"reflect"
	"testing"
)

func TestRegistry_JoinAndMembers(t *testing.T) {
	r := NewRegistry()
	r.Join("table-1", "s1")
	r.Join("table-1", "s2")
	r.Join("table-1", "s1") // duplicate join

	members, ok := r.Members("table-1")
	if !ok {
		t.Fatal("Members should find table-1")
	}
	if !reflect.DeepEqual(members, []string{"s1", "s2"}) {
		t.Errorf("Expected [s1 s2], got %v", members)
	}

	if _, ok := r.Members("table-2"); ok {
		t.Error("Members should not find an unknown channel")
	}
}

func TestRegistry_MembersIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Join("c", "s1")
	members, _ := r.Members("c")
	members[0] = "mutated"

	again, _ := r.Members("c")
	if again[0] != "s1" {
		t.Errorf("registry state leaked through Members, got %v", again)
	}
}

func TestRegistry_LeaveDropsEmptyChannel(t *testing.T) {
	r := NewRegistry()
	r.Join("c", "s1")
	r.Leave("c", "s1")

	if r.Count() != 0 {
		t.Errorf("Expected empty registry, got %d channels", r.Count())
	}
	r.Leave("c", "s1") // leaving twice must not panic
}

func TestRegistry_LeaveAll(t *testing.T) {
	r := NewRegistry()
	r.Join("a", "s1")
	r.Join("b", "s1")
	r.Join("b", "s2")
	r.Join("c", "s2")

	left := r.LeaveAll("s1")
	if !reflect.DeepEqual(left, []string{"a", "b"}) {
		t.Errorf("Expected to leave [a b], got %v", left)
	}
	if r.IsMember("b", "s1") {
		t.Error("s1 should no longer be a member of b")
	}
	if !r.IsMember("b", "s2") {
		t.Error("s2 membership must be untouched")
	}
	if !reflect.DeepEqual(r.Channels(), []string{"b", "c"}) {
		t.Errorf("Expected channels [b c], got %v", r.Channels())
	}
}

func TestRegistry_LeaveKeepsOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		r.Join("c", id)
	}
	r.Leave("c", "s2")

	members, _ := r.Members("c")
	if !reflect.DeepEqual(members, []string{"s1", "s3", "s4"}) {
		t.Errorf("Expected [s1 s3 s4], got %v", members)
	}
}
