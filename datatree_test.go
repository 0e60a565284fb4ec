package teng

import "testing"

func TestFragmentScalarRoundTrip(t *testing.T) {
	f := NewFragment()
	f.SetString("name", "alice")
	f.SetInt("age", 30)

	fv, ok := f.Find("name")
	if !ok || fv.Scalar.String() != "alice" {
		t.Fatalf("expected name=alice, got %+v ok=%v", fv, ok)
	}
	fv, ok = f.Find("age")
	if !ok || fv.Scalar.Int64() != 30 {
		t.Fatalf("expected age=30, got %+v ok=%v", fv, ok)
	}
	if _, ok := f.Find("missing"); ok {
		t.Fatal("expected missing key to be absent")
	}
}

func TestFragmentNamesPreservesInsertionOrder(t *testing.T) {
	f := NewFragment()
	f.SetString("z", "1")
	f.SetString("a", "2")
	f.SetString("m", "3")
	names := f.Names()
	want := []string{"z", "a", "m"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestFragmentListIteration(t *testing.T) {
	root := NewFragment()
	rows := root.AddFragmentList("items")
	for i := 0; i < 3; i++ {
		child := rows.AddFragment()
		child.SetInt("n", int64(i))
	}
	if rows.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", rows.Len())
	}
	for i := 0; i < rows.Len(); i++ {
		fv, ok := rows.At(i).Find("n")
		if !ok || fv.Scalar.Int64() != int64(i) {
			t.Fatalf("row %d: got %+v", i, fv)
		}
	}
}

func TestGetNestedFragmentsWrapsSingleFragment(t *testing.T) {
	root := NewFragment()
	child := root.AddFragment("person")
	child.SetString("name", "bob")

	fv, _ := root.Find("person")
	list := fv.GetNestedFragments()
	if list == nil || list.Len() != 1 {
		t.Fatalf("expected a one-element wrap, got %+v", list)
	}
	nv, ok := list.At(0).Find("name")
	if !ok || nv.Scalar.String() != "bob" {
		t.Fatalf("expected wrapped fragment to be the same node, got %+v", nv)
	}
}

func TestGetNestedFragmentsScalarIsNil(t *testing.T) {
	root := NewFragment()
	root.SetString("leaf", "x")
	fv, _ := root.Find("leaf")
	if fv.GetNestedFragments() != nil {
		t.Fatal("expected nil for a scalar fragment value")
	}
}
