package behavior

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mizukoshi.dev/craft-agent-go/internal/input"
)

// profileSpec is the on-disk shape of a tree profile.
type profileSpec struct {
	Name string    `yaml:"name"`
	Root *nodeSpec `yaml:"root"`
}

// nodeSpec mirrors Node for YAML, with a type discriminator per node and a
// raw map for the polymorphic predicate.
type nodeSpec struct {
	Type       string                 `yaml:"type"`
	Name       string                 `yaml:"name,omitempty"`
	Children   []*nodeSpec            `yaml:"children,omitempty"`
	Predicate  map[string]interface{} `yaml:"predicate,omitempty"`
	Action     string                 `yaml:"action,omitempty"`
	EveryTicks uint64                 `yaml:"every_ticks,omitempty"`
	Child      *nodeSpec              `yaml:"child,omitempty"`
}

// LoadProfile reads a YAML tree profile and builds the tree. All structural
// problems are reported at load time; nothing is deferred to the live loop.
func LoadProfile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile builds a tree from YAML bytes.
func ParseProfile(data []byte) (*Tree, error) {
	var spec profileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("tree profile is not valid YAML: %w", err)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("tree profile has no name")
	}
	if spec.Root == nil {
		return nil, fmt.Errorf("tree profile %q has no root node", spec.Name)
	}
	root, err := spec.Root.build()
	if err != nil {
		return nil, fmt.Errorf("tree profile %q: %w", spec.Name, err)
	}
	return New(spec.Name, root)
}

func (s *nodeSpec) build() (*Node, error) {
	switch s.Type {
	case "sequence", "selector":
		children := make([]*Node, 0, len(s.Children))
		for i, child := range s.Children {
			built, err := child.build()
			if err != nil {
				return nil, fmt.Errorf("%s %q child %d: %w", s.Type, s.Name, i+1, err)
			}
			children = append(children, built)
		}
		kind := KindSequence
		if s.Type == "selector" {
			kind = KindSelector
		}
		return &Node{Kind: kind, Name: s.Name, Children: children}, nil

	case "condition":
		pred, err := unmarshalPredicate(s.Predicate)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", s.Name, err)
		}
		return &Node{Kind: KindCondition, Name: s.Name, Predicate: pred}, nil

	case "action":
		id, err := input.ParseAction(s.Action)
		if err != nil {
			return nil, err
		}
		return Action(id), nil

	case "cooldown":
		if s.Child == nil {
			return nil, fmt.Errorf("cooldown %q has no child", s.Name)
		}
		child, err := s.Child.build()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindCooldown, Name: s.Name, EveryTicks: s.EveryTicks, Children: []*Node{child}}, nil

	case "invert":
		if s.Child == nil {
			return nil, fmt.Errorf("invert %q has no child", s.Name)
		}
		child, err := s.Child.build()
		if err != nil {
			return nil, err
		}
		return Invert(child), nil

	default:
		return nil, fmt.Errorf("unknown node type %q", s.Type)
	}
}

// unmarshalPredicate dispatches on the "type" key and re-decodes the raw map
// into the matching concrete predicate.
func unmarshalPredicate(raw map[string]interface{}) (Predicate, error) {
	if raw == nil {
		return nil, fmt.Errorf("predicate is required")
	}
	typeName, ok := raw["type"].(string)
	if !ok {
		return nil, fmt.Errorf("predicate has no type field")
	}

	var pred Predicate
	switch typeName {
	case "FactTrue":
		pred = &FactTrue{}
	case "FactFalse":
		pred = &FactFalse{}
	case "FactEquals":
		pred = &FactEquals{}
	case "FactBelow":
		pred = &FactBelow{}
	case "FactAbove":
		pred = &FactAbove{}
	case "FactFresh":
		pred = &FactFresh{}
	default:
		return nil, fmt.Errorf("unknown predicate type %q", typeName)
	}

	// Round-trip through YAML to fill the concrete struct's fields.
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode predicate: %w", err)
	}
	if err := yaml.Unmarshal(data, pred); err != nil {
		return nil, fmt.Errorf("failed to decode %s predicate: %w", typeName, err)
	}
	return pred, nil
}
