package teng

// FragmentValueKind distinguishes the three shapes a named entry in a
// Fragment can take, per spec.md §3.
type FragmentValueKind uint8

const (
	FVScalar FragmentValueKind = iota
	FVFragment
	FVList
)

// FragmentValue is one named entry of a Fragment: a scalar, a single
// nested Fragment, or a FragmentList.
type FragmentValue struct {
	Kind       FragmentValueKind
	Scalar     Value
	Nested     *Fragment
	List       *FragmentList
	singleWrap *FragmentList // lazy one-element view, see GetNestedFragments
}

// GetNestedFragments returns the value's FragmentList if it names one
// or a nested Fragment (wrapped as a one-element list so callers like
// findSubFragment don't need to special-case FVFragment), or nil for a
// scalar. Mirrors tengstructs's getNestedFragments used throughout
// original_source/src/tengfragmentstack.h.
func (fv *FragmentValue) GetNestedFragments() *FragmentList {
	switch fv.Kind {
	case FVList:
		return fv.List
	case FVFragment:
		if fv.singleWrap == nil {
			fv.singleWrap = &FragmentList{items: []*Fragment{fv.Nested}}
		}
		return fv.singleWrap
	}
	return nil
}

// Fragment is an ordered mapping from name to FragmentValue. Names are
// unique; order is preserved for deterministic iteration where it
// matters (e.g. debug dumps), though Teng's own semantics never
// iterate a Fragment's own keys at render time.
type Fragment struct {
	order []string
	byKey map[string]*FragmentValue
}

// NewFragment returns an empty fragment ready for population by the
// caller before a render begins.
func NewFragment() *Fragment {
	return &Fragment{byKey: make(map[string]*FragmentValue)}
}

// Find looks up a direct child by name.
func (f *Fragment) Find(name string) (*FragmentValue, bool) {
	fv, ok := f.byKey[name]
	return fv, ok
}

// Names returns the fragment's child names in insertion order.
func (f *Fragment) Names() []string { return f.order }

func (f *Fragment) set(name string, fv *FragmentValue) {
	if _, exists := f.byKey[name]; !exists {
		f.order = append(f.order, name)
	}
	f.byKey[name] = fv
}

// SetString/SetInt/SetReal add a scalar leaf.
func (f *Fragment) SetString(name, val string) { f.set(name, &FragmentValue{Kind: FVScalar, Scalar: StringValue(val)}) }
func (f *Fragment) SetInt(name string, val int64) {
	f.set(name, &FragmentValue{Kind: FVScalar, Scalar: IntValue(val)})
}
func (f *Fragment) SetReal(name string, val float64) {
	f.set(name, &FragmentValue{Kind: FVScalar, Scalar: RealValue(val)})
}

// AddFragment attaches a single nested fragment under name.
func (f *Fragment) AddFragment(name string) *Fragment {
	child := NewFragment()
	f.set(name, &FragmentValue{Kind: FVFragment, Nested: child})
	return child
}

// AddFragmentList attaches an (initially empty) fragment list under name.
func (f *Fragment) AddFragmentList(name string) *FragmentList {
	list := &FragmentList{}
	f.set(name, &FragmentValue{Kind: FVList, List: list})
	return list
}

// FragmentList is an ordered sequence of fragments, one per iteration.
type FragmentList struct {
	items []*Fragment
}

func (l *FragmentList) Len() int { return len(l.items) }
func (l *FragmentList) Empty() bool { return len(l.items) == 0 }
func (l *FragmentList) At(i int) *Fragment { return l.items[i] }

// AddFragment appends and returns a new fragment for the caller to
// populate — the idiomatic way to build up iteration data.
func (l *FragmentList) AddFragment() *Fragment {
	f := NewFragment()
	l.items = append(l.items, f)
	return f
}
