package tp

import "tlog.app/go/errors"

// Field is one member of a struct, in declaration order.
type Field struct {
	Name string
	Type Type
}

// StructDef is a registered struct: its fields in declaration order, plus
// the template bindings active when it was instantiated (re-exposed while
// compiling its member functions, per §4.1).
type StructDef struct {
	Name     string
	Fields   []Field
	Template map[string]Type // template parameter name -> bound type, or nil
}

// Registry is the type manager (§4.1): it registers struct definitions
// (including template instantiations), computes sizes, and answers field
// layout queries. It is append-only during compilation, per §5.
type Registry struct {
	structs map[string]*StructDef
}

func NewRegistry() *Registry {
	return &Registry{structs: map[string]*StructDef{}}
}

// Add registers name with the given fields. It fails if name is already
// registered (§4.1).
func (r *Registry) Add(name string, fields []Field, template map[string]Type) error {
	if _, ok := r.structs[name]; ok {
		return errors.New("type already exists: %s", name)
	}

	r.structs[name] = &StructDef{Name: name, Fields: fields, Template: template}

	return nil
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.structs[name]
	return ok
}

func (r *Registry) Def(name string) (*StructDef, bool) {
	d, ok := r.structs[name]
	return d, ok
}

// FieldsOf returns the ordered field list of a registered struct.
func (r *Registry) FieldsOf(name string) ([]Field, error) {
	d, ok := r.structs[name]
	if !ok {
		return nil, errors.New("unknown type: %s", name)
	}

	return d.Fields, nil
}

// SizeOfStruct computes a struct's size as the sum of its field sizes in
// declaration order (§3.1, §4.1): fields are laid out tightly, with no
// padding, and a struct with no data fields still occupies one byte so it
// remains addressable.
func (r *Registry) SizeOfStruct(name string) int {
	d, ok := r.structs[name]
	if !ok {
		return 0
	}

	if len(d.Fields) == 0 {
		return 1
	}

	size := 0
	for _, f := range d.Fields {
		size += f.Type.Size(r)
	}

	return size
}

// FieldOffset returns the byte offset of field within struct name,
// computed by summing the sizes of the preceding fields in declaration
// order (§4.1's key rule) — this must stay in lockstep with SizeOfStruct.
func (r *Registry) FieldOffset(name, field string) (Field, int, error) {
	fields, err := r.FieldsOf(name)
	if err != nil {
		return Field{}, 0, err
	}

	off := 0
	for _, f := range fields {
		if f.Name == field {
			return f, off, nil
		}

		off += f.Type.Size(r)
	}

	return Field{}, 0, errors.New("no field %q on %s", field, name)
}
