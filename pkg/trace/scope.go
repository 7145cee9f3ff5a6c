package trace

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Scope stack detach errors. Detach never modifies the stack when it
// returns one of these.
var (
	ErrInvalidToken = errors.New("invalid scope token")
	ErrForeignToken = errors.New("scope token issued by another stack")
	ErrStaleToken   = errors.New("scope token already detached")
	ErrOutOfOrder   = errors.New("scope token is not the innermost scope")
)

// Token proves an Attach and is required to undo it. The zero Token is
// invalid.
type Token struct {
	stack *ScopeStack
	id    uint64
}

type scopeFrame struct {
	ctx context.Context
	id  uint64
}

// ScopeStack tracks explicit context activations for a single goroutine.
// Attach pushes a context and returns a token; Detach pops it again.
// Scopes must nest: the token handed back must belong to the innermost
// attachment. A ScopeStack must not be shared between goroutines.
type ScopeStack struct {
	base   context.Context
	frames []scopeFrame
	nextID uint64
	logger log.Logger
}

// NewScopeStack returns a stack whose Current is base until something is
// attached. A nil base falls back to context.Background.
func NewScopeStack(base context.Context, logger log.Logger) *ScopeStack {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ScopeStack{base: base, logger: logger}
}

// Attach makes ctx the current context and returns the token that undoes
// it.
func (s *ScopeStack) Attach(ctx context.Context) Token {
	s.nextID++
	s.frames = append(s.frames, scopeFrame{ctx: ctx, id: s.nextID})
	return Token{stack: s, id: s.nextID}
}

// Detach restores the context that was current before the Attach that
// produced t. Zero tokens, tokens from another stack, tokens already
// detached and tokens detached out of nesting order are errors; the stack
// is left unchanged.
func (s *ScopeStack) Detach(t Token) error {
	var err error
	switch {
	case t.stack == nil:
		err = ErrInvalidToken
	case t.stack != s:
		err = ErrForeignToken
	case len(s.frames) == 0 || !s.holds(t.id):
		err = ErrStaleToken
	case s.frames[len(s.frames)-1].id != t.id:
		err = ErrOutOfOrder
	}
	if err != nil {
		level.Debug(s.logger).Log("msg", "scope detach rejected", "err", err)
		return err
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Current returns the innermost attached context, or the base context when
// nothing is attached.
func (s *ScopeStack) Current() context.Context {
	if len(s.frames) == 0 {
		return s.base
	}
	return s.frames[len(s.frames)-1].ctx
}

// Depth returns the number of attached scopes.
func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

func (s *ScopeStack) holds(id uint64) bool {
	for _, f := range s.frames {
		if f.id == id {
			return true
		}
	}
	return false
}
