package front

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/tp"
)

// resolveType turns surface-syntax TypeExpr into a tp.Type, substituting
// any active template parameter bindings (§4.3's template instantiation:
// "field type references see the template parameters").
func (c *Compiler) resolveType(te ast.TypeExpr) (tp.Type, error) {
	switch te := te.(type) {
	case *ast.ConstTypeExpr:
		inner, err := c.resolveType(te.Inner)
		if err != nil {
			return tp.Type{}, err
		}
		return inner.WithConst(true), nil

	case *ast.PtrTypeExpr:
		inner, err := c.resolveType(te.Pointee)
		if err != nil {
			return tp.Type{}, err
		}
		return tp.Ptr(inner), nil

	case *ast.SpanTypeExpr:
		inner, err := c.resolveType(te.Elem)
		if err != nil {
			return tp.Type{}, err
		}
		return tp.Span(inner), nil

	case *ast.ArrayTypeExpr:
		inner, err := c.resolveType(te.Elem)
		if err != nil {
			return tp.Type{}, err
		}

		lit, ok := te.Count.(*ast.IntLit)
		if !ok {
			return tp.Type{}, errors.New("array count must be a constant")
		}

		if lit.Value < 1 {
			return tp.Type{}, errors.New("array length must be >= 1")
		}

		return tp.Array(inner, int(lit.Value)), nil

	case *ast.FuncPtrTypeExpr:
		params := make([]tp.Type, len(te.Params))
		for i, p := range te.Params {
			t, err := c.resolveType(p)
			if err != nil {
				return tp.Type{}, err
			}
			params[i] = t
		}

		ret := tp.Null
		if te.Return != nil {
			r, err := c.resolveType(te.Return)
			if err != nil {
				return tp.Type{}, err
			}
			ret = r
		}

		return tp.FunctionPtr(params, ret), nil

	case *ast.NameTypeExpr:
		if bound, ok := c.templateEnv[te.Name]; ok {
			return bound, nil
		}

		switch te.Name {
		case "null":
			return tp.Null, nil
		case "bool":
			return tp.Bool, nil
		case "char":
			return tp.Char, nil
		case "i32":
			return tp.I32, nil
		case "i64":
			return tp.I64, nil
		case "u64":
			return tp.U64, nil
		case "f64":
			return tp.F64, nil
		case "nullptr":
			return tp.Nullptr, nil
		case "arena":
			return tp.Arena(), nil
		}

		if len(te.Args) > 0 {
			args := make([]tp.Type, len(te.Args))
			for i, a := range te.Args {
				t, err := c.resolveType(a)
				if err != nil {
					return tp.Type{}, err
				}
				args[i] = t
			}

			name, err := c.instantiateStructTemplate(te.Name, args)
			if err != nil {
				return tp.Type{}, err
			}

			return tp.StructType(name), nil
		}

		if !c.reg.Contains(te.Name) {
			return tp.Type{}, errors.New("unknown type: %s", te.Name)
		}

		return tp.StructType(te.Name), nil

	default:
		return tp.Type{}, errors.New("unsupported type expression %T", te)
	}
}

// registerStruct resolves decl's fields and registers it in the type
// manager (§4.1). env, if non-nil, binds the struct's own template
// parameters while resolving field types (used for instantiations).
func (c *Compiler) registerStruct(decl *ast.StructDecl, env map[string]tp.Type) error {
	savedEnv := c.templateEnv
	c.templateEnv = env
	defer func() { c.templateEnv = savedEnv }()

	fields := make([]tp.Field, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		t, err := c.resolveType(f.Type)
		if err != nil {
			return errors.Wrap(err, "field %s", f.Name)
		}
		fields = append(fields, tp.Field{Name: f.Name, Type: t})
	}

	name := decl.Name
	if env != nil {
		args := make([]tp.Type, len(decl.Templates))
		for i, p := range decl.Templates {
			args[i] = env[p]
		}
		name = tp.InstantiationName(decl.Name, args)
	}

	if err := c.reg.Add(name, fields, env); err != nil {
		return err
	}

	c.structs[name] = &structInfo{methods: map[string]*methodSig{}}

	for _, m := range decl.Methods {
		if err := c.compileMethod(name, m.Fn); err != nil {
			return errors.Wrap(err, "method %s.%s", name, m.Fn.Name)
		}
	}

	return nil
}

// instantiateStructTemplate resolves args, formats the canonical
// instantiation name, and registers the instantiation on first use
// (§4.3); later uses of the same canonical name are a no-op.
func (c *Compiler) instantiateStructTemplate(base string, args []tp.Type) (string, error) {
	name := tp.InstantiationName(base, args)

	if c.reg.Contains(name) {
		return name, nil
	}

	decl, ok := c.templateTypes[base]
	if !ok {
		return "", errors.New("unknown struct template: %s", base)
	}

	if len(decl.Templates) != len(args) {
		return "", errors.New("struct %s: expected %d template arguments, got %d", base, len(decl.Templates), len(args))
	}

	env := make(map[string]tp.Type, len(args))
	for i, p := range decl.Templates {
		env[p] = args[i]
	}

	if err := c.registerStruct(decl, env); err != nil {
		return "", err
	}

	return name, nil
}
