// Package builtin is the numbered native-function table of §6.3: a
// stable id, name, parameter/return types for each entry that the
// compiler resolves a call against. The native implementations live in
// package vm, keyed by the same ids, so front (the compiler) can depend
// on builtin without depending on vm.
package builtin

import "github.com/slowlang/slow/src/compiler/tp"

// Entry describes one builtin's compile-time signature.
type Entry struct {
	ID     int
	Name   string
	Params []tp.Type
	Return tp.Type
}

const (
	Sqrt = iota
	Fopen
	Fclose
	Fputs
)

// Table is the initial builtin set (§6.3). New entries may be appended;
// ids are stable once assigned.
var Table = []Entry{
	{ID: Sqrt, Name: "sqrt", Params: []tp.Type{tp.F64}, Return: tp.F64},
	{ID: Fopen, Name: "fopen", Params: []tp.Type{
		tp.Span(tp.Char.WithConst(true)).WithConst(true),
		tp.Span(tp.Char.WithConst(true)).WithConst(true),
	}, Return: tp.U64},
	{ID: Fclose, Name: "fclose", Params: []tp.Type{tp.U64}, Return: tp.Null},
	{ID: Fputs, Name: "fputs", Params: []tp.Type{
		tp.U64,
		tp.Span(tp.Char.WithConst(true)).WithConst(true),
	}, Return: tp.Null},
}

// byName is built once at init for Lookup.
var byName = func() map[string]Entry {
	m := make(map[string]Entry, len(Table))
	for _, e := range Table {
		m[e.Name] = e
	}
	return m
}()

// Lookup returns the builtin named name, if any.
func Lookup(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}
