// Package registry indexes the commands of a parsed Script by path so the
// evaluator can resolve a user-requested command or a Depends target.
//
// The registry is a tree keyed by command path, built once by a single
// traversal of the AST and read-only afterward - the same "index once,
// resolve by walking the tree" shape as the teacher's decorator registry,
// minus the mutex, since nothing mutates a registry after Build returns.
package registry

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/wf-lang/wf/internal/ast"
	"github.com/wf-lang/wf/internal/wferrors"
)

// Entry is one command indexed in the tree: the command node itself plus
// its nested children, keyed by their own (unqualified) names.
type Entry struct {
	Command  *ast.Command
	Children map[string]*Entry
}

// Registry is the immutable, path-keyed index of all commands in a Script.
type Registry struct {
	roots map[string]*Entry
}

// Build indexes every top-level and nested command in script. Duplicate
// sibling names are already rejected by the parser at AST-build time, so
// Build itself cannot fail on well-formed input; it returns an error only
// as a defensive backstop against a Script assembled outside the parser
// (e.g. hand-built in tests) with duplicate siblings.
func Build(script *ast.Script) (*Registry, error) {
	r := &Registry{roots: make(map[string]*Entry)}
	for _, cmd := range script.Commands {
		entry, err := buildEntry(cmd)
		if err != nil {
			return nil, err
		}
		if _, exists := r.roots[cmd.Name]; exists {
			return nil, dup(cmd.Name)
		}
		r.roots[cmd.Name] = entry
	}
	return r, nil
}

func buildEntry(cmd *ast.Command) (*Entry, error) {
	entry := &Entry{Command: cmd, Children: make(map[string]*Entry)}
	for _, stmt := range cmd.Body.Statements {
		nc, ok := stmt.(*ast.NestedCommand)
		if !ok {
			continue
		}
		child, err := buildEntry(nc.Command)
		if err != nil {
			return nil, err
		}
		if _, exists := entry.Children[nc.Command.Name]; exists {
			return nil, dup(nc.Command.Name)
		}
		entry.Children[nc.Command.Name] = child
	}
	return entry, nil
}

func dup(name string) *wferrors.Error {
	return wferrors.Newf(wferrors.KindDuplicateSibling, "duplicate command %q", name).With("name", name)
}

// Resolve walks path strictly, one segment matching a direct child of the
// previous command at a time. On success it returns the resolved command.
// On failure it returns a wferrors.Error of kind UnknownCommand carrying
// the prefix that matched and the segment that failed, per spec §4.C.
func (r *Registry) Resolve(path []string) (*ast.Command, error) {
	entry, err := r.resolveEntry(path)
	if err != nil {
		return nil, err
	}
	return entry.Command, nil
}

// ResolveSibling resolves name inside the namespace enclosing parentPath: the
// top-level roots when parentPath is empty, or the children of the command at
// parentPath otherwise. A Depends target is a bare name, never a dotted path,
// and per spec §4.E it names a sibling in the invoking command's own
// enclosing namespace - not the global root, so a nested command can only
// depend on commands defined alongside it.
func (r *Registry) ResolveSibling(parentPath []string, name string) (*ast.Command, error) {
	children := r.roots
	if len(parentPath) > 0 {
		parent, err := r.resolveEntry(parentPath)
		if err != nil {
			return nil, err
		}
		children = parent.Children
	}
	child, ok := children[name]
	if !ok {
		return nil, wferrors.UnknownCommand(parentPath, name)
	}
	return child.Command, nil
}

func (r *Registry) resolveEntry(path []string) (*Entry, error) {
	if len(path) == 0 {
		return nil, wferrors.Newf(wferrors.KindUnknownCommand, "empty command path")
	}
	entry, ok := r.roots[path[0]]
	if !ok {
		return nil, wferrors.UnknownCommand(nil, path[0])
	}
	matched := []string{path[0]}
	for _, seg := range path[1:] {
		child, ok := entry.Children[seg]
		if !ok {
			return nil, wferrors.UnknownCommand(matched, seg)
		}
		entry = child
		matched = append(matched, seg)
	}
	return entry, nil
}

// Paths enumerates every resolvable command path in the registry: each
// root command followed, depth-first, by its nested commands. The order
// among siblings (and among roots) is not defined. Used by the CLI to
// render `wf doc` and to offer "did you mean" suggestions on UnknownCommand.
func (r *Registry) Paths() [][]string {
	var out [][]string
	for name, entry := range r.roots {
		out = append(out, entry.collectPaths([]string{name})...)
	}
	return out
}

// Suggest returns the closest matching command path for an unresolved
// input, "" if the registry has nothing to suggest. It ranks every known
// path (rendered dotted) against the failed input the same way the
// teacher's planner ranks step targets: fuzzy edit-distance folding.
func (r *Registry) Suggest(input string) string {
	var candidates []string
	for _, path := range r.Paths() {
		candidates = append(candidates, strings.Join(path, "."))
	}
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(input, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func (e *Entry) collectPaths(prefix []string) [][]string {
	out := [][]string{append([]string(nil), prefix...)}
	for name, child := range e.Children {
		childPrefix := append(append([]string(nil), prefix...), name)
		out = append(out, child.collectPaths(childPrefix)...)
	}
	return out
}
