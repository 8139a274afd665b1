package blackboard

import "fmt"

// Schema is the closed set of fact names the agent may observe or test.
// Declared once at startup; the behavior tree is checked against it before the
// first tick so no condition can reference an unregistered name at runtime.
type Schema struct {
	kinds map[string]Kind
	names []string // registration order, for deterministic iteration
}

func NewSchema() *Schema {
	return &Schema{kinds: make(map[string]Kind)}
}

// Register declares a fact name with its kind. Duplicate registration is a
// construction error.
func (s *Schema) Register(name string, kind Kind) error {
	if name == "" {
		return fmt.Errorf("fact name must not be empty")
	}
	if _, exists := s.kinds[name]; exists {
		return fmt.Errorf("fact %q registered twice", name)
	}
	s.kinds[name] = kind
	s.names = append(s.names, name)
	return nil
}

// MustRegister is Register for statically known schemas.
func (s *Schema) MustRegister(name string, kind Kind) *Schema {
	if err := s.Register(name, kind); err != nil {
		panic(err)
	}
	return s
}

// Has reports whether a fact name is registered.
func (s *Schema) Has(name string) bool {
	_, ok := s.kinds[name]
	return ok
}

// KindOf returns the declared kind for a registered name.
func (s *Schema) KindOf(name string) (Kind, bool) {
	kind, ok := s.kinds[name]
	return kind, ok
}

// Names returns the registered fact names in registration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
