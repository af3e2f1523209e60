package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommand struct {
	name    string
	aliases []string
	calls   int
}

func (s *stubCommand) Name() string        { return s.name }
func (s *stubCommand) Description() string { return "stub " + s.name }
func (s *stubCommand) Aliases() []string   { return s.aliases }
func (s *stubCommand) Run(context.Context, *Invocation) error {
	s.calls++
	return nil
}

func TestRegistry_GetAndAliases(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	leave := &stubCommand{name: "force-leave-server", aliases: []string{"leave-server"}}
	r.Register(leave)
	r.Register(&stubCommand{name: "approve"})

	assert.Same(t, leave, r.Get("force-leave-server"))
	assert.Same(t, leave, r.Get("LEAVE-SERVER"))
	assert.Nil(t, r.Get("missing"))

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "approve", all[0].Name())
	assert.Panics(t, func() { r.MustGet("missing") })
}

func TestApply_OrderAndRoot(t *testing.T) {
	t.Parallel()
	var order []string
	mw := func(tag string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				order = append(order, tag)
				return c.Run(ctx, inv)
			})
		}
	}

	inner := &stubCommand{name: "x"}
	c := Apply(inner, mw("a"), mw("b"))
	require.NoError(t, c.Run(context.Background(), &Invocation{}))

	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, 1, inner.calls)
	assert.Same(t, inner, Root(c))
	assert.Equal(t, "stub x", c.Description())
}

func TestWrap_ErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	c := Wrap(&stubCommand{name: "x"}, func(context.Context, *Invocation) error { return boom })
	assert.ErrorIs(t, c.Run(context.Background(), nil), boom)
}

func TestInvocation_Arg(t *testing.T) {
	t.Parallel()
	inv := &Invocation{Args: []string{"a", "b"}}
	assert.Equal(t, "b", inv.Arg(1))
	assert.Empty(t, inv.Arg(2))
	assert.Empty(t, (*Invocation)(nil).Arg(0))
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  servers  ", want: []string{"servers"}},
		{in: `blacklist-server 123 "My Guild Name"`, want: []string{"blacklist-server", "123", "My Guild Name"}},
		{in: `say ""`, want: []string{"say", ""}},
		{in: `open "quote runs on`, want: []string{"open", "quote runs on"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArgs(tt.in))
		})
	}
}
