package value

import "strings"

// Resolve looks up a dotted path such as "report.totalDuration". The first
// segment is found through the scope chain and every following segment must
// index into a Dict. Any miss yields (nil, false); a stored None is present
// and yields (None{}, true).
func Resolve(s *Scope, path string) (Value, bool) {
	if s == nil || path == "" {
		return nil, false
	}
	head, rest, _ := strings.Cut(path, ".")
	cur, ok := s.Lookup(head)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return cur, true
	}
	return walk(cur, rest)
}

func walk(cur Value, path string) (Value, bool) {
	for _, seg := range strings.Split(path, ".") {
		d, ok := cur.(Dict)
		if !ok {
			return nil, false
		}
		v, ok := d[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
