package ast

// Nested wraps cmd as a NestedCommand statement. It is the one node the
// parser builds through a constructor instead of a struct literal, since
// NestedCommand has no fields of its own worth naming at the call site.
func Nested(cmd *Command) *NestedCommand {
	return &NestedCommand{Command: cmd}
}
