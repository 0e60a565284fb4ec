package teng

// LookupStatus is the outcome of a FragmentStack identifier resolution,
// mirroring original_source/src/tengfragmentstack.h's status codes.
type LookupStatus int

const (
	LookupOK LookupStatus = iota
	LookupNotFound
	LookupBad
	LookupOutOfContext
	LookupAlreadyDefined
	LookupTypeMismatch
	LookupNoIterations
)

// errorFrameData is the synthetic fragment exposed inside an
// OPEN_ERROR_FRAG block, one entry per logged diagnostic, carrying the
// same five fields as the original ErrorFragmentFrame_t (SPEC_FULL.md
// §4 "supplemented features").
type errorFrameData struct {
	Filename string
	Line     int
	Column   int
	Level    string
	Message  string
}

// frame is one entry on a FragmentChain: either a regular fragment
// being iterated, or a synthetic error frame.
type frame struct {
	frag      *Fragment // regular frame: the fragment currently in scope
	list      *FragmentList
	index     int // current position within list, for _index/_count
	isError   bool
	errorRows []errorFrameData
	locals    map[string]Value
}

func newRegularFrame(list *FragmentList) *frame {
	f := &frame{list: list}
	if list != nil && list.Len() > 0 {
		f.frag = list.At(0)
	}
	return f
}

func newErrorFrame(rows []errorFrameData) *frame {
	return &frame{isError: true, errorRows: rows}
}

// clearLocals drops per-iteration `set` bindings, called by
// next_iteration so locals don't leak across frag rows (spec.md §3
// "locals per-frame, cleared on iteration").
func (f *frame) clearLocals() { f.locals = nil }

func (f *frame) setLocal(name string, v Value) {
	if f.locals == nil {
		f.locals = make(map[string]Value)
	}
	f.locals[name] = v
}

func (f *frame) getLocal(name string) (Value, bool) {
	v, ok := f.locals[name]
	return v, ok
}

// FragmentChain is one rooted sequence of open frag scopes: a chain
// starts with a frame over the data-tree root and grows one frame per
// nested `frag` opened within it.
type FragmentChain struct {
	frames []*frame
}

// FragmentStack drives identifier resolution and frag iteration during
// bytecode execution. It is a vector of FragmentChain, per spec.md §3
// "a vector of chains" / §4.5 push_frame: an identifier whose
// VarRef.Context is nonzero opens a fresh chain rooted again at the
// data-tree root, rather than nesting inside the current one. Grounded
// on original_source/src/tengfragmentstack.h's FragmentStack_t/
// FragmentChain_t, adapted from its explicit index-range checks to
// idiomatic Go slice bounds.
type FragmentStack struct {
	chains []*FragmentChain
	root   *Fragment
}

// NewFragmentStack seeds the stack with a single chain over the
// caller-provided data tree as the root scope.
func NewFragmentStack(root *Fragment) *FragmentStack {
	return &FragmentStack{root: root, chains: []*FragmentChain{{frames: []*frame{{frag: root}}}}}
}

func (s *FragmentStack) curChain() *FragmentChain {
	return s.chains[len(s.chains)-1]
}

// chainAt resolves a context index to a chain, 0 = innermost (the most
// recently opened chain), per spec.md §3's definition of context
// index. ok is false when context names a chain that doesn't exist,
// the out-of-context case of spec.md §4.5.
func (s *FragmentStack) chainAt(context int) (*FragmentChain, bool) {
	i := len(s.chains) - 1 - context
	if i < 0 || i >= len(s.chains) {
		return nil, false
	}
	return s.chains[i], true
}

// PushFrag opens a nested fragment scope by name, resolved against the
// current innermost frame of ref's chain — a new chain rooted at the
// data-tree root if ref.Context is nonzero, per spec.md §4.5
// push_frame. Returns the number of iterations available (0 if the
// fragment doesn't exist or is empty) and a status. A failed lookup
// leaves the stack exactly as it found it (no chain and no frame is
// left behind), since OPEN_FRAG's zero-iteration jump skips CLOSE_FRAG
// entirely. An empty list likewise pushes nothing and reports 0
// iterations with LookupOK.
func (s *FragmentStack) PushFrag(ref VarRef) (iterations int, status LookupStatus) {
	createdChain := false
	if ref.Context != 0 {
		s.chains = append(s.chains, &FragmentChain{frames: []*frame{{frag: s.root}}})
		createdChain = true
	}
	chain := s.curChain()
	fv, ok := lookupSubFragment(chain, ref.Name)
	if !ok {
		if createdChain {
			s.chains = s.chains[:len(s.chains)-1]
		}
		return 0, LookupNotFound
	}
	list := fv.GetNestedFragments()
	if list == nil {
		if createdChain {
			s.chains = s.chains[:len(s.chains)-1]
		}
		return 0, LookupTypeMismatch
	}
	if list.Len() == 0 {
		if createdChain {
			s.chains = s.chains[:len(s.chains)-1]
		}
		return 0, LookupOK
	}
	chain.frames = append(chain.frames, newRegularFrame(list))
	return list.Len(), LookupOK
}

// lookupSubFragment resolves name against chain's current frame's
// fragment (spec.md §4.5: "look up name in the current frame's
// fragment"), falling back to the enclosing frames of the same chain
// so a nested frag can still reach an ancestor's field by bare name
// without an explicit dotted path.
func lookupSubFragment(chain *FragmentChain, name string) (*FragmentValue, bool) {
	frames := chain.frames
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if f.isError || f.frag == nil {
			continue
		}
		if fv, ok := f.frag.Find(name); ok {
			return fv, true
		}
	}
	return nil, false
}

// PushErrorFrag opens the synthetic error fragment over the given
// error log's entries, one row per entry, on the innermost chain. An
// empty log pushes nothing and returns 0, matching PushFrag.
func (s *FragmentStack) PushErrorFrag(log *ErrorLog) int {
	if log.Count() == 0 {
		return 0
	}
	rows := make([]errorFrameData, log.Count())
	for i, e := range log.Entries() {
		rows[i] = errorFrameData{
			Filename: e.Pos.Filename,
			Line:     e.Pos.Line,
			Column:   e.Pos.Column,
			Level:    e.Severity.String(),
			Message:  e.Message,
		}
	}
	chain := s.curChain()
	chain.frames = append(chain.frames, newErrorFrame(rows))
	return len(rows)
}

// PopFrag closes the innermost scope, and if that leaves a
// non-bottommost chain holding nothing but its own root frame, removes
// the chain too (spec.md §4.5 pop_frame).
func (s *FragmentStack) PopFrag() {
	chain := s.curChain()
	if len(chain.frames) > 1 {
		chain.frames = chain.frames[:len(chain.frames)-1]
	}
	if len(chain.frames) <= 1 && len(s.chains) > 1 {
		s.chains = s.chains[:len(s.chains)-1]
	}
}

// NextIteration advances the innermost frame to its next row, clearing
// that frame's locals. Returns false once iteration is exhausted (the
// CLOSE_FRAG/REPEAT_FRAG boundary). Works the same over a regular frame
// and the synthetic error frame opened by `frag _error`, since both
// carry a row count and an index.
func (s *FragmentStack) NextIteration() bool {
	f := s.top()
	if f == nil {
		return false
	}
	f.clearLocals()
	f.index++
	if f.isError {
		return f.index < len(f.errorRows)
	}
	if f.list == nil || f.index >= f.list.Len() {
		return false
	}
	f.frag = f.list.At(f.index)
	return true
}

func (s *FragmentStack) top() *frame {
	chain := s.curChain()
	if len(chain.frames) == 0 {
		return nil
	}
	return chain.frames[len(chain.frames)-1]
}

// FragmentIndex returns the innermost frame's zero-based row index
// (backs the `_index` builtin identifier).
func (s *FragmentStack) FragmentIndex() int64 {
	f := s.top()
	if f == nil {
		return 0
	}
	return int64(f.index)
}

// FragmentCount returns the innermost frame's iteration count (backs
// `_count`).
func (s *FragmentStack) FragmentCount() int64 {
	f := s.top()
	if f == nil {
		return 0
	}
	if f.isError {
		return int64(len(f.errorRows))
	}
	if f.list == nil {
		return 0
	}
	return int64(f.list.Len())
}

// SetVariable binds name in the innermost frame's local scope, per the
// `set` directive.
func (s *FragmentStack) SetVariable(name string, v Value) {
	f := s.top()
	if f == nil {
		return
	}
	f.setLocal(name, v)
}

// FindVariable resolves ref against the chain named by ref.Context (0
// = innermost), walking outward from ref.Depth frames down from that
// chain's top: locals first, then the frame's own fragment fields,
// then the error frame's five well-known fields when applicable, per
// the (context, depth, name) triple of spec.md §3/§4.5.
func (s *FragmentStack) FindVariable(ref VarRef) (Value, LookupStatus) {
	chain, ok := s.chainAt(ref.Context)
	if !ok {
		return Undefined, LookupOutOfContext
	}
	frames := chain.frames
	start := len(frames) - 1 - ref.Depth
	if start < 0 {
		return Undefined, LookupOutOfContext
	}
	for i := start; i >= 0; i-- {
		f := frames[i]
		if v, ok := f.getLocal(ref.Name); ok && len(ref.Path) == 0 {
			return v, LookupOK
		}
		if f.isError {
			if v, ok := lookupErrorField(f, ref.Name); ok {
				return v, LookupOK
			}
			continue
		}
		if f.frag == nil {
			continue
		}
		if v, status := lookupInFragment(f.frag, ref.Name, ref.Path); status == LookupOK {
			return v, LookupOK
		}
	}
	return Undefined, LookupNotFound
}

// resolveFragmentValue looks up ref as a nested-fragment reference
// (used by `frag`/`OPEN_FRAG`, which never resolves to a scalar),
// against the chain named by ref.Context.
func (s *FragmentStack) resolveFragmentValue(ref VarRef) (*FragmentValue, bool) {
	chain, ok := s.chainAt(ref.Context)
	if !ok {
		return nil, false
	}
	frames := chain.frames
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if f.isError || f.frag == nil {
			continue
		}
		cur := f.frag
		fv, ok := cur.Find(ref.Name)
		if !ok {
			continue
		}
		for _, seg := range ref.Path {
			if fv.Kind != FVFragment {
				return nil, false
			}
			fv, ok = fv.Nested.Find(seg)
			if !ok {
				return nil, false
			}
		}
		return fv, true
	}
	return nil, false
}

func lookupInFragment(frag *Fragment, name string, path []string) (Value, LookupStatus) {
	fv, ok := frag.Find(name)
	if !ok {
		return Undefined, LookupNotFound
	}
	for _, seg := range path {
		if fv.Kind != FVFragment {
			return Undefined, LookupTypeMismatch
		}
		fv, ok = fv.Nested.Find(seg)
		if !ok {
			return Undefined, LookupNotFound
		}
	}
	switch fv.Kind {
	case FVScalar:
		return fv.Scalar, LookupOK
	case FVFragment:
		return FragmentRefValue(fv.Nested, 0), LookupOK
	case FVList:
		return ListRefValue(fv.List, 0), LookupOK
	}
	return Undefined, LookupBad
}

func lookupErrorField(f *frame, name string) (Value, bool) {
	if f.index >= len(f.errorRows) {
		return Undefined, false
	}
	row := f.errorRows[f.index]
	switch name {
	case "filename":
		return StringValue(row.Filename), true
	case "line":
		return IntValue(int64(row.Line)), true
	case "column":
		return IntValue(int64(row.Column)), true
	case "level":
		return StringValue(row.Level), true
	case "message":
		return StringValue(row.Message), true
	}
	return Undefined, false
}

// LookupFragmentValue exposes resolveFragmentValue to the processor for
// PUSH_FRAG and PUSH_ATTR, which need the raw FragmentValue rather than
// a coerced scalar Value.
func (s *FragmentStack) LookupFragmentValue(ref VarRef) (*FragmentValue, bool) {
	return s.resolveFragmentValue(ref)
}

// Exists reports whether ref resolves to anything, scalar or
// structural, without producing a diagnostic on failure.
func (s *FragmentStack) Exists(ref VarRef) bool {
	_, status := s.FindVariable(ref)
	if status == LookupOK {
		return true
	}
	_, ok := s.resolveFragmentValue(ref)
	return ok
}

// RepeatFragment is preserved as an intentional no-op that always
// reports LookupNoIterations: Teng's iteration
// model advances via NextIteration driven by REPEAT_FRAG's runtime
// check, and no caller-facing "repeat current row" operation exists in
// this engine (spec.md Open Questions — kept as a stub for interface
// parity with original_source/src/tengfragmentstack.h's repeatFragment,
// which the C++ engine also leaves unconditionally unimplemented).
func (s *FragmentStack) RepeatFragment() LookupStatus {
	return LookupNoIterations
}
