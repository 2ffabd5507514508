package shield

// Classification maps dotted field paths to sensitivity classes. Paths not
// present classify as ClassNone.
type Classification map[string]SensitivityClass

// ClassOf returns the class for a field path, defaulting to ClassNone.
func (c Classification) ClassOf(path string) SensitivityClass {
	if class, ok := c[path]; ok {
		return class
	}
	return ClassNone
}

// Classify maps every leaf field of the record to a sensitivity class.
// Patterns are evaluated most specific first (priority descending,
// declaration order on ties); the first match wins. Fields matching no
// pattern are omitted, which ClassOf reports as ClassNone.
//
// Classification never fails: patterns are validated when the policy loads,
// and a glob that cannot be evaluated simply does not match.
func (s *Snapshot) Classify(rec *Record) Classification {
	cls := make(Classification)
	// Walk only errors when the callback errors, and this one never does.
	_ = rec.Walk(func(path string, v Value) error {
		canonical := v.canonical()
		for i := range s.patterns {
			if s.patterns[i].matches(path, canonical) {
				cls[path] = s.patterns[i].class
				break
			}
		}
		return nil
	})
	return cls
}
