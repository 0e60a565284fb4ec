package teng

import "testing"

func TestFragmentStackFindVariableRoot(t *testing.T) {
	root := NewFragment()
	root.SetString("title", "hello")
	fs := NewFragmentStack(root)
	v, status := fs.FindVariable(VarRef{Name: "title"})
	if status != LookupOK || v.String() != "hello" {
		t.Fatalf("got %+v status=%v", v, status)
	}
}

func TestFragmentStackNotFound(t *testing.T) {
	fs := NewFragmentStack(NewFragment())
	_, status := fs.FindVariable(VarRef{Name: "missing"})
	if status != LookupNotFound {
		t.Fatalf("expected LookupNotFound, got %v", status)
	}
}

func TestFragmentStackPushPopFrag(t *testing.T) {
	root := NewFragment()
	list := root.AddFragmentList("rows")
	list.AddFragment().SetString("x", "1")
	list.AddFragment().SetString("x", "2")

	fs := NewFragmentStack(root)
	n, status := fs.PushFrag(VarRef{Name: "rows"})
	if status != LookupOK || n != 2 {
		t.Fatalf("PushFrag: n=%d status=%v", n, status)
	}
	v, _ := fs.FindVariable(VarRef{Name: "x"})
	if v.String() != "1" {
		t.Fatalf("expected first row value 1, got %q", v.String())
	}
	if !fs.NextIteration() {
		t.Fatal("expected a second iteration")
	}
	v, _ = fs.FindVariable(VarRef{Name: "x"})
	if v.String() != "2" {
		t.Fatalf("expected second row value 2, got %q", v.String())
	}
	if fs.NextIteration() {
		t.Fatal("expected iteration to be exhausted")
	}
	fs.PopFrag()
	if _, status := fs.FindVariable(VarRef{Name: "x"}); status != LookupNotFound {
		t.Fatal("expected x to be out of scope after PopFrag")
	}
}

func TestFragmentStackLocalsResetOnIteration(t *testing.T) {
	root := NewFragment()
	list := root.AddFragmentList("rows")
	list.AddFragment()
	list.AddFragment()

	fs := NewFragmentStack(root)
	fs.PushFrag(VarRef{Name: "rows"})
	fs.SetVariable("tmp", IntValue(99))
	if v, status := fs.FindVariable(VarRef{Name: "tmp"}); status != LookupOK || v.Int64() != 99 {
		t.Fatalf("expected local tmp=99, got %+v", v)
	}
	fs.NextIteration()
	if _, status := fs.FindVariable(VarRef{Name: "tmp"}); status != LookupNotFound {
		t.Fatal("expected local to be cleared after next_iteration")
	}
}

func TestFragmentStackPushFragMissingIsNotFound(t *testing.T) {
	fs := NewFragmentStack(NewFragment())
	n, status := fs.PushFrag(VarRef{Name: "nope"})
	if n != 0 || status != LookupNotFound {
		t.Fatalf("expected 0/not-found, got n=%d status=%v", n, status)
	}
}

func TestRepeatFragmentIsUnsupported(t *testing.T) {
	fs := NewFragmentStack(NewFragment())
	if st := fs.RepeatFragment(); st != LookupNoIterations {
		t.Fatalf("expected RepeatFragment to report no-iterations, got %v", st)
	}
}
