package vm

import (
	"fmt"

	"github.com/tolelom/casinochain/core"
)

// Handler executes one decoded instruction of the family it is registered
// for. A returned *core.Error is a domain error; an error wrapping
// core.ErrFault aborts the block.
type Handler func(ctx *Context, ins core.Instruction) error

// SystemStep is a pipeline-driven step that runs without a transaction.
type SystemStep func(ctx *Context) error

type namedStep struct {
	name string
	fn   SystemStep
}

// Registry routes instruction families to handlers and holds the system
// steps. It is built once at startup and read-only afterwards.
type Registry struct {
	handlers map[core.Family]Handler
	begin    []namedStep
	after    map[core.Family][]namedStep
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[core.Family]Handler),
		after:    make(map[core.Family][]namedStep),
	}
}

// Register associates a family with h. Panics on duplicate registration.
func (r *Registry) Register(f core.Family, h Handler) {
	if f == core.FamilyUnknown {
		panic("vm: cannot register the unknown family")
	}
	if _, exists := r.handlers[f]; exists {
		panic(fmt.Sprintf("vm: handler already registered for family %s", f))
	}
	r.handlers[f] = h
}

// OnBeginBlock appends a step run at the start of every block, in
// registration order.
func (r *Registry) OnBeginBlock(name string, fn SystemStep) {
	r.begin = append(r.begin, namedStep{name, fn})
}

// AfterInstruction appends a step run after every successful instruction of
// the given families.
func (r *Registry) AfterInstruction(name string, fn SystemStep, families ...core.Family) {
	for _, f := range families {
		r.after[f] = append(r.after[f], namedStep{name, fn})
	}
}

// Handler returns the handler for f.
func (r *Registry) Handler(f core.Family) (Handler, bool) {
	h, ok := r.handlers[f]
	return h, ok
}
