package blackboard

import "fmt"

// UnknownFactError reports a read of a fact name that was never registered in
// the schema. This is a programming error: a correctly constructed tree is
// verified against the schema at startup, so it should never surface from a
// Live session.
type UnknownFactError struct {
	Name string
}

func (e *UnknownFactError) Error() string {
	return fmt.Sprintf("fact %q is not registered in the blackboard schema", e.Name)
}
