package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeStackNesting(t *testing.T) {
	base := context.Background()
	s := NewScopeStack(base, nil)
	require.Equal(t, base, s.Current())

	ctxA := ContextWithSpanContext(base, mustSpanContext(t))
	ctxB := ContextWithSpanContext(base, SpanContext{}.WithTraceID(TraceID{7}).WithSpanID(SpanID{7}))

	ta := s.Attach(ctxA)
	require.Equal(t, ctxA, s.Current())

	tb := s.Attach(ctxB)
	require.Equal(t, ctxB, s.Current())
	require.Equal(t, 2, s.Depth())

	require.NoError(t, s.Detach(tb))
	require.Equal(t, ctxA, s.Current())

	require.NoError(t, s.Detach(ta))
	require.Equal(t, base, s.Current())
	require.Equal(t, 0, s.Depth())
}

func TestScopeStackDetachZeroToken(t *testing.T) {
	s := NewScopeStack(context.Background(), nil)
	require.ErrorIs(t, s.Detach(Token{}), ErrInvalidToken)
}

func TestScopeStackDetachForeignToken(t *testing.T) {
	s1 := NewScopeStack(context.Background(), nil)
	s2 := NewScopeStack(context.Background(), nil)

	tok := s1.Attach(context.Background())
	require.ErrorIs(t, s2.Detach(tok), ErrForeignToken)
	require.Equal(t, 1, s1.Depth())
}

func TestScopeStackDetachStaleToken(t *testing.T) {
	s := NewScopeStack(context.Background(), nil)
	tok := s.Attach(context.Background())
	require.NoError(t, s.Detach(tok))
	require.ErrorIs(t, s.Detach(tok), ErrStaleToken)
}

func TestScopeStackDetachOutOfOrder(t *testing.T) {
	s := NewScopeStack(context.Background(), nil)
	ctxA := ContextWithSpanContext(context.Background(), mustSpanContext(t))

	ta := s.Attach(ctxA)
	tb := s.Attach(context.Background())

	// Detaching the outer scope first is rejected and changes nothing.
	require.ErrorIs(t, s.Detach(ta), ErrOutOfOrder)
	require.Equal(t, 2, s.Depth())

	require.NoError(t, s.Detach(tb))
	require.NoError(t, s.Detach(ta))
	require.Equal(t, 0, s.Depth())
}
