package value

// Scope is a layer of name bindings. Lookups that miss in a scope fall
// through to its parent, so a child can shadow names without touching the
// bindings it extends. Scopes are not modified after creation.
type Scope struct {
	vars   Dict
	parent *Scope
}

// NewScope returns a root scope over vars. A nil map is treated as empty.
func NewScope(vars Dict) *Scope {
	if vars == nil {
		vars = Dict{}
	}
	return &Scope{vars: vars}
}

// Child returns a scope that layers vars on top of s.
func (s *Scope) Child(vars Dict) *Scope {
	if vars == nil {
		vars = Dict{}
	}
	return &Scope{vars: vars, parent: s}
}

// Lookup finds name in s or its ancestors.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}
