// Package scope implements the variable manager (§3.2, §4.2): a LIFO
// stack of scopes tracking local variables, their byte offsets within the
// current call frame, and the loop/function bookkeeping used to lower
// break, continue, and return.
package scope

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/tp"
)

// Variable records a declared name, its type, its byte offset within the
// owning frame, its size, and whether it is a local or a global (§3.2).
type Variable struct {
	Name   string
	Type   tp.Type
	Offset int
	Size   int
	Global bool
}

// Kind classifies a scope as plain, loop, or function (§3.2).
type Kind int

const (
	Plain Kind = iota
	LoopKind
	FunctionKind
)

// breakPatch is one jump instruction (by byte offset into the current
// function's bytecode) whose target needs to be patched in once the
// enclosing loop scope is popped and its exit address is known.
type breakPatch struct{ at int }

type scope struct {
	kind Kind
	vars []*Variable
	base int // offset of this scope's first byte within the frame

	// LoopKind
	breaks, continues []breakPatch

	// FunctionKind
	returnType tp.Type
}

// Manager is the compile-time view of the runtime stack for the function
// currently being compiled, plus the global scope (§4.2).
type Manager struct {
	global *scope
	stack  []*scope
	next   int // next offset to assign within the current function frame
}

func NewManager() *Manager {
	m := &Manager{global: &scope{kind: Plain}}
	return m
}

// DeclareGlobal declares a variable in the global scope. Offsets for
// globals are independent of any function frame.
func (m *Manager) DeclareGlobal(name string, t tp.Type, size int) (*Variable, error) {
	if m.findInScope(m.global, name) != nil {
		return nil, errors.New("duplicate global declaration: %s", name)
	}

	v := &Variable{Name: name, Type: t, Offset: m.globalNext(), Size: size, Global: true}
	m.global.vars = append(m.global.vars, v)

	return v, nil
}

func (m *Manager) globalNext() int {
	off := 0
	for _, v := range m.global.vars {
		off += v.Size
	}
	return off
}

// EnterFunction resets the frame cursor and pushes a function scope; call
// at the start of compiling each function body.
func (m *Manager) EnterFunction(returnType tp.Type) {
	m.next = 0
	m.stack = m.stack[:0]
	m.push(&scope{kind: FunctionKind, returnType: returnType})
}

// NewScope pushes a plain block scope.
func (m *Manager) NewScope() {
	m.push(&scope{kind: Plain})
}

// NewLoopScope pushes a loop scope, which additionally carries the
// break/continue patch lists.
func (m *Manager) NewLoopScope() {
	m.push(&scope{kind: LoopKind})
}

func (m *Manager) push(s *scope) {
	s.base = m.next
	m.stack = append(m.stack, s)
}

// PopScope pops the innermost scope and returns the total bytes its
// variables occupied, which the compiler emits as an explicit stack-adjust
// opcode (§4.2).
func (m *Manager) PopScope() int {
	s := m.top()
	m.stack = m.stack[:len(m.stack)-1]

	released := m.next - s.base
	m.next = s.base

	return released
}

// Declare records name in the innermost open scope, assigning it the
// current frame offset and advancing the cursor by size. It fails if name
// is already declared in any currently-open scope of this function
// (§4.2): shadowing across functions is fine, shadowing within one is not.
func (m *Manager) Declare(name string, t tp.Type, size int) (*Variable, error) {
	for _, s := range m.stack {
		if m.findInScope(s, name) != nil {
			return nil, errors.New("duplicate declaration: %s", name)
		}
	}

	v := &Variable{Name: name, Type: t, Offset: m.next, Size: size}
	m.top().vars = append(m.top().vars, v)
	m.next += size

	return v, nil
}

// Find looks up name innermost-to-outermost within the current function,
// falling back to globals.
func (m *Manager) Find(name string) (*Variable, bool) {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if v := m.findInScope(m.stack[i], name); v != nil {
			return v, true
		}
	}

	if v := m.findInScope(m.global, name); v != nil {
		return v, true
	}

	return nil, false
}

func (m *Manager) findInScope(s *scope, name string) *Variable {
	for _, v := range s.vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (m *Manager) top() *scope { return m.stack[len(m.stack)-1] }

// InLoop reports whether the innermost scopes contain an open loop scope
// before hitting a function boundary.
func (m *Manager) InLoop() bool {
	_, ok := m.loopScope()
	return ok
}

// InFunction always holds while a function is being compiled (there is
// always at least the function scope itself on the stack).
func (m *Manager) InFunction() bool {
	return len(m.stack) > 0
}

func (m *Manager) loopScope() (*scope, bool) {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == LoopKind {
			return m.stack[i], true
		}
	}
	return nil, false
}

func (m *Manager) functionScope() *scope {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == FunctionKind {
			return m.stack[i]
		}
	}
	return nil
}

// ReturnType returns the declared return type of the enclosing function
// scope.
func (m *Manager) ReturnType() tp.Type {
	return m.functionScope().returnType
}

// BytesToLoopExit sums the bytes owned by every scope from the current
// point out to and including the enclosing loop scope, for
// handle_loop_exit (§4.2): the scopes are not popped, only their sizes are
// accounted for, since later code in the block still sees them.
func (m *Manager) BytesToLoopExit() (int, error) {
	ls, ok := m.loopScope()
	if !ok {
		return 0, errors.New("break/continue outside a loop")
	}

	return m.next - ls.base, nil
}

// RecordBreak/RecordContinue register a placeholder jump at byte offset at
// (within the function's bytecode) to be back-patched once the loop's
// exit/continue target is known.
func (m *Manager) RecordBreak(at int) error {
	ls, ok := m.loopScope()
	if !ok {
		return errors.New("break outside a loop")
	}

	ls.breaks = append(ls.breaks, breakPatch{at: at})

	return nil
}

func (m *Manager) RecordContinue(at int) error {
	ls, ok := m.loopScope()
	if !ok {
		return errors.New("continue outside a loop")
	}

	ls.continues = append(ls.continues, breakPatch{at: at})

	return nil
}

// LoopPatches returns the byte offsets of every pending break and
// continue jump in the innermost loop scope, so the compiler can back-fill
// their targets once it knows the loop's exit and continue points. Call
// just before popping that loop scope.
func (m *Manager) LoopPatches() (breaks, continues []int, err error) {
	ls, ok := m.loopScope()
	if !ok {
		return nil, nil, errors.New("not in a loop scope")
	}

	for _, p := range ls.breaks {
		breaks = append(breaks, p.at)
	}
	for _, p := range ls.continues {
		continues = append(continues, p.at)
	}

	return breaks, continues, nil
}
