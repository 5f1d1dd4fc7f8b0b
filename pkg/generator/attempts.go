package generator

import (
	"context"

	"explainergo/pkg/llm"
)

// attempts remembers the request behind each recovery attempt so a caching
// provider keeps the accepted response and forgets the rejected ones.
type attempts struct {
	p    llm.Provider
	reqs map[int]llm.Request
	last int
}

func newAttempts(p llm.Provider) *attempts {
	return &attempts{p: p, reqs: make(map[int]llm.Request)}
}

func (a *attempts) generate(ctx context.Context, attempt int, req llm.Request) (string, error) {
	a.reqs[attempt] = req
	a.last = attempt
	return a.p.Generate(ctx, req)
}

// rejected returns a recovery hook bound to ctx.
func (a *attempts) rejected(ctx context.Context) func(int, error) {
	return func(attempt int, _ error) {
		if c, ok := a.p.(llm.Committer); ok {
			c.Reject(ctx, a.reqs[attempt])
		}
	}
}

func (a *attempts) accept(ctx context.Context) {
	if c, ok := a.p.(llm.Committer); ok {
		c.Commit(ctx, a.reqs[a.last])
	}
}
