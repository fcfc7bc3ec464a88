package stream

import (
	"context"
	"errors"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/metrics"
)

// Matcher selects the errors a policy entry applies to.
type Matcher func(err error) bool

// MatchAny matches every error.
func MatchAny() Matcher {
	return func(error) bool { return true }
}

// MatchIs matches errors for which errors.Is(err, target) holds.
func MatchIs(target error) Matcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// MatchAs matches errors with an E in their chain.
func MatchAs[E error]() Matcher {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// MatchKind matches classified stream failures of kind k.
func MatchKind(k rferrors.Kind) Matcher {
	return func(err error) bool { return rferrors.KindOf(err) == k }
}

// Action is the recovery applied by a policy entry.
type Action int

const (
	// ActionReturn emits a default value and completes.
	ActionReturn Action = iota
	// ActionResume continues with a replacement stream.
	ActionResume
	// ActionMap replaces the error and terminates.
	ActionMap
	// ActionContinue drops the failed element and keeps the stream going.
	ActionContinue
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionReturn:
		return "return"
	case ActionResume:
		return "resume"
	case ActionMap:
		return "map"
	case ActionContinue:
		return "continue"
	default:
		return "unknown"
	}
}

type policyEntry[T any] struct {
	match  Matcher
	action Action
	value  T
	resume func(error) Stream[T]
	mapErr func(error) error
}

// Policy is an ordered list of (matcher, action) entries. When an error
// reaches the policy the first matching entry applies; without a match the
// error propagates unchanged.
//
// Continue entries only apply to per-element failures raised by Map and
// FlatMap upstream of the policy. Such failures consult the nearest policy
// first and walk outward until one has a matching entry; the element is
// skipped when that entry is a continue entry. Errors terminating a stream
// never match continue entries.
//
// A Policy must not be modified once it is attached to a stream.
type Policy[T any] struct {
	entries  []policyEntry[T]
	registry *metrics.Registry
	name     string
}

// NewPolicy returns an empty policy.
func NewPolicy[T any]() *Policy[T] {
	return &Policy[T]{name: "policy"}
}

// OnErrorReturn substitutes value for matching errors and completes.
func (p *Policy[T]) OnErrorReturn(m Matcher, value T) *Policy[T] {
	return p.add(policyEntry[T]{match: m, action: ActionReturn, value: value})
}

// OnErrorResume continues with the stream built by fallback.
func (p *Policy[T]) OnErrorResume(m Matcher, fallback func(error) Stream[T]) *Policy[T] {
	return p.add(policyEntry[T]{match: m, action: ActionResume, resume: fallback})
}

// OnErrorMap terminates with f(err) instead of err. A nil result keeps err.
func (p *Policy[T]) OnErrorMap(m Matcher, f func(error) error) *Policy[T] {
	return p.add(policyEntry[T]{match: m, action: ActionMap, mapErr: f})
}

// OnErrorContinue skips elements whose per-element processing failed.
func (p *Policy[T]) OnErrorContinue(m Matcher) *Policy[T] {
	return p.add(policyEntry[T]{match: m, action: ActionContinue})
}

// Observe counts applied actions in registry under name.
func (p *Policy[T]) Observe(registry *metrics.Registry, name string) *Policy[T] {
	p.registry = registry
	if name != "" {
		p.name = name
	}
	return p
}

func (p *Policy[T]) add(e policyEntry[T]) *Policy[T] {
	if e.match == nil {
		e.match = MatchAny()
	}
	p.entries = append(p.entries, e)
	return p
}

// forStream returns the first entry matching a stream-terminating error.
func (p *Policy[T]) forStream(err error) (policyEntry[T], bool) {
	for _, e := range p.entries {
		if e.action != ActionContinue && e.match(err) {
			return e, true
		}
	}
	return policyEntry[T]{}, false
}

// forElement reports whether the policy handles a per-element failure, and
// if so whether the element is skipped.
func (p *Policy[T]) forElement(err error) (handled, skip bool) {
	for _, e := range p.entries {
		if e.match(err) {
			if e.action == ActionContinue {
				p.registry.ObservePolicyAction(p.name, ActionContinue.String())
				return true, true
			}
			return true, false
		}
	}
	return false, false
}

type scopeKey struct{}

type continueScope struct {
	parent  *continueScope
	resolve func(err error) (handled, skip bool)
}

func withScope(ctx context.Context, resolve func(error) (bool, bool)) context.Context {
	parent, _ := ctx.Value(scopeKey{}).(*continueScope)
	return context.WithValue(ctx, scopeKey{}, &continueScope{parent: parent, resolve: resolve})
}

// shouldContinue walks the policies attached downstream of ctx, nearest first.
func shouldContinue(ctx context.Context, err error) bool {
	s, _ := ctx.Value(scopeKey{}).(*continueScope)
	for ; s != nil; s = s.parent {
		if handled, skip := s.resolve(err); handled {
			return skip
		}
	}
	return false
}

func recoverWith[T any](s Stream[T], p *Policy[T]) producer[T] {
	return func(out *emitter[T]) {
		ctx := withScope(out.ctx, p.forElement)
		forwardCtx(ctx, out, s, Funcs[T]{
			Value:    func(v T) { out.Next(v) },
			Complete: out.Complete,
			Error: func(err error) {
				e, ok := p.forStream(err)
				if !ok {
					out.Error(err)
					return
				}
				p.registry.ObservePolicyAction(p.name, e.action.String())

				switch e.action {
				case ActionReturn:
					out.Next(e.value)
					out.Complete()
				case ActionResume:
					fallback := e.resume(err)
					if fallback == nil {
						out.Complete()
						return
					}
					forward(out, fallback, Subscriber[T](out))
				case ActionMap:
					if mapped := e.mapErr(err); mapped != nil {
						err = mapped
					}
					out.Error(err)
				}
			},
		})
	}
}

// WithErrorPolicy attaches p to s.
func WithErrorPolicy[T any](s Stream[T], p *Policy[T]) Many[T] {
	return Many[T]{on: recoverWith(s, p)}
}

// Recover attaches p to m.
func (m Many[T]) Recover(p *Policy[T]) Many[T] {
	return WithErrorPolicy[T](m, p)
}

// OnErrorReturn emits value in place of any error, then completes.
func (m Many[T]) OnErrorReturn(match Matcher, value T) Many[T] {
	return m.Recover(NewPolicy[T]().OnErrorReturn(match, value))
}

// OnErrorResume continues with fallback(err) in place of any matching error.
func (m Many[T]) OnErrorResume(match Matcher, fallback func(error) Stream[T]) Many[T] {
	return m.Recover(NewPolicy[T]().OnErrorResume(match, fallback))
}

// OnErrorMap replaces matching errors with f(err).
func (m Many[T]) OnErrorMap(match Matcher, f func(error) error) Many[T] {
	return m.Recover(NewPolicy[T]().OnErrorMap(match, f))
}

// OnErrorContinue skips elements whose per-element processing failed with a
// matching error.
func (m Many[T]) OnErrorContinue(match Matcher) Many[T] {
	return m.Recover(NewPolicy[T]().OnErrorContinue(match))
}

// Recover attaches p to s.
func (s Single[T]) Recover(p *Policy[T]) Single[T] {
	return Single[T]{on: recoverWith[T](s, p)}
}

// OnErrorReturn emits value in place of a matching error.
func (s Single[T]) OnErrorReturn(match Matcher, value T) Single[T] {
	return s.Recover(NewPolicy[T]().OnErrorReturn(match, value))
}

// OnErrorResume continues with fallback(err) in place of a matching error.
func (s Single[T]) OnErrorResume(match Matcher, fallback func(error) Stream[T]) Single[T] {
	return s.Recover(NewPolicy[T]().OnErrorResume(match, fallback))
}

// OnErrorMap replaces a matching error with f(err).
func (s Single[T]) OnErrorMap(match Matcher, f func(error) error) Single[T] {
	return s.Recover(NewPolicy[T]().OnErrorMap(match, f))
}
