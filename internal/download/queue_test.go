package download

import "testing"

func TestAdmissionQueue(t *testing.T) {
	var q admissionQueue

	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue should report false")
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		q.push(id)
	}

	if !q.remove("c") {
		t.Error("remove should find c")
	}
	if q.remove("c") {
		t.Error("second remove of c should report false")
	}
	q.push("e")

	var got []string
	for {
		id, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, id)
	}

	expected := []string{"a", "b", "d", "e"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}
