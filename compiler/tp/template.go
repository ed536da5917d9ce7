package tp

import "strings"

// InstantiationName formats the canonical name of a template
// instantiation `Base!(T1, T2, ...)` (§4.3). Two instantiations with the
// same base and the same argument types produce the same canonical name,
// which is what gives them nominal equality in Equal.
func InstantiationName(base string, args []Type) string {
	if len(args) == 0 {
		return base
	}

	var b strings.Builder

	b.WriteString(base)
	b.WriteString("!(")

	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(a.String())
	}

	b.WriteString(")")

	return b.String()
}
