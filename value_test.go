package teng

import "testing"

func TestValueConversions(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		str  string
		i64  int64
		b    bool
	}{
		{"undefined", Undefined, "", 0, false},
		{"int-zero", IntValue(0), "0", 0, false},
		{"int-nonzero", IntValue(42), "42", 42, true},
		{"real", RealValue(3.5), "3.5", 3, true},
		{"string-empty", StringValue(""), "", 0, false},
		{"string-numeric", StringValue("17"), "17", 17, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.String(); got != c.str {
				t.Errorf("String() = %q, want %q", got, c.str)
			}
			if got := c.v.Int64(); got != c.i64 {
				t.Errorf("Int64() = %d, want %d", got, c.i64)
			}
			if got := c.v.Bool(); got != c.b {
				t.Errorf("Bool() = %v, want %v", got, c.b)
			}
		})
	}
}

func TestEqualNumericStringCoercion(t *testing.T) {
	if !Equal(IntValue(3), StringValue("3")) {
		t.Error("expected int 3 to equal string \"3\"")
	}
	if Equal(IntValue(3), StringValue("abc")) {
		t.Error("expected int 3 to not equal non-numeric string")
	}
	if !Equal(Undefined, Undefined) {
		t.Error("expected undefined to equal undefined")
	}
	if Equal(Undefined, IntValue(0)) {
		t.Error("expected undefined to not equal 0")
	}
}

func TestCompareOrdering(t *testing.T) {
	if Compare(IntValue(1), IntValue(2)) >= 0 {
		t.Error("expected 1 < 2")
	}
	if Compare(StringValue("b"), StringValue("a")) <= 0 {
		t.Error("expected \"b\" > \"a\"")
	}
}

func TestFragmentRefEqualityByIdentity(t *testing.T) {
	f1 := NewFragment()
	f2 := NewFragment()
	if !Equal(FragmentRefValue(f1, 0), FragmentRefValue(f1, 0)) {
		t.Error("expected identical fragment refs to be equal")
	}
	if Equal(FragmentRefValue(f1, 0), FragmentRefValue(f2, 0)) {
		t.Error("expected distinct fragments to not be equal")
	}
}
