/*
engine.go - Orchestration of upsert, matching, binding and cache

PURPOSE:
  The Engine is what boundaries talk to. It wires the upsert engine,
  matching engine, binding state machine, decision cache and guard
  into the two public operations:

    Ingest(fact)  - reconcile one purchase fact (event feed)
    Verify(query) - answer a verification query, claiming if asked

VERIFY FLOW:
  1. Cache consult - skipped when the caller opted out, when an
     explicit bind was requested, and for candidate-bearing hits
     whose outcome could mask a now-eligible claim (see maskableHit)
  2. Matching engine selects a candidate (unguarded read)
  3. If the decision needs a bind, the binding state machine commits
     it under the guard (cache bypassed in both directions)
  4. Pure read outcomes are memoized for the cache TTL

SEE ALSO:
  - api/handlers.go: HTTP boundary calling Ingest/Verify
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config carries the engine's tunables. Zero values select defaults.
type Config struct {
	CacheTTL  time.Duration // read-decision memoization window
	GuardWait time.Duration // bounded mutation-guard acquisition
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the reconciliation and binding core, ready for boundaries.
type Engine struct {
	upserter *Upserter
	matcher  *Matcher
	binder   *Binder
	cache    *DecisionCache
}

// NewEngine wires an engine over the given store.
func NewEngine(store Store, cfg Config) *Engine {
	guard := NewGuard(cfg.GuardWait)
	return &Engine{
		upserter: NewUpserter(store, guard),
		matcher:  NewMatcher(store),
		binder:   NewBinder(store, guard),
		cache:    NewDecisionCache(cfg.CacheTTL),
	}
}

// Ingest reconciles one purchase fact into the ledger.
func (e *Engine) Ingest(ctx context.Context, fact PurchaseFact) (UpsertResult, error) {
	return e.upserter.Upsert(ctx, fact)
}

// Verify answers one verification query, committing a claim when the
// matching outcome calls for it.
func (e *Engine) Verify(ctx context.Context, q Query) (Decision, error) {
	key := NewCacheKey(q)
	if !q.BypassCache && !q.ExplicitBind {
		if d, ok := e.cache.Get(key); ok && !maskableHit(q, d) {
			return d, nil
		}
	}

	match, err := e.matcher.FindCandidate(ctx, q)
	if err != nil {
		return Decision{}, err
	}

	if match.NeedsBind {
		// Mutation path: fresh state only, nothing cached.
		d, err := e.binder.Claim(ctx, match.Candidate.TransactionID, q.Candidate, match.Decision.Action)
		if err != nil {
			return Decision{}, err
		}
		d.ProjectName = match.Candidate.ClientName
		return d, nil
	}

	e.cache.Put(key, match.Decision)
	return match.Decision, nil
}

// maskableHit reports whether a cached decision could hide a claim the
// store has since become eligible for. A candidate-bearing query whose
// cached outcome is not_found or wrong_plugin can flip to a bind once
// a later fact reconciles the row, so those hits must fall through to
// a fresh match. already_bound and bound_to_other are permanent under
// the write-once binding invariant and stay safely cacheable.
func maskableHit(q Query, d Decision) bool {
	if q.Candidate == "" {
		return false
	}
	return d.Reason == ReasonNotFound || d.Reason == ReasonWrongPlugin
}
