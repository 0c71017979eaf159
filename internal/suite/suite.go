// Package suite runs a fixed list of cases with lifecycle hooks, one case at a
// time, giving each case its own state.
package suite

import (
	"context"
	"time"
)

// Case is one independently executed scenario over per-case state S
type Case[S any] struct {
	Name    string
	Mode    Mode
	Timeout time.Duration // Zero uses Options.CaseTimeout
	Run     func(ctx context.Context, s S) error
}

// CaseInfo identifies a case to hooks and observers
type CaseInfo struct {
	Index int
	Name  string
	Mode  Mode
}

// Suite declares the hooks and cases. Open creates the fresh state each case
// runs against and returns the function that disposes it.
type Suite[S any] struct {
	Name string

	Open func(ctx context.Context, info CaseInfo) (S, func(), error)

	BeforeAll  func(ctx context.Context) error
	AfterAll   func(ctx context.Context) error
	BeforeEach func(ctx context.Context, s S) error
	AfterEach  func(ctx context.Context, s S) error

	// OnFailure runs after a failed case while its state is still open and
	// returns the path of any artifact it saved
	OnFailure func(ctx context.Context, s S, info CaseInfo, err error) string

	Cases []Case[S]
}

// Infos lists the declared cases in order
func (s *Suite[S]) Infos() []CaseInfo {
	infos := make([]CaseInfo, len(s.Cases))
	for i, c := range s.Cases {
		infos[i] = CaseInfo{Index: i, Name: c.Name, Mode: c.Mode}
	}
	return infos
}
