/*
match.go - Candidate selection and decision derivation

PURPOSE:
  Given a verification query, scans the store, narrows to the records
  matching email + access code, applies the optional plugin filter,
  and selects exactly one candidate via a deterministic tie-break.
  The derived outcome says whether the purchase is valid and whether
  a claim should proceed to the binding state machine.

TIE-BREAK POLICY (in priority order):
  1. First record in original order with an empty binding
  2. First record already bound to the requesting candidate
  3. First record in original order

  This prefers an unclaimed slot, then an idempotent replay of the
  same requester's earlier claim, then falls back deterministically.

WRONG-PLUGIN REPORTING:
  When a plugin filter empties the candidate set, the decision reports
  the plugin name and binding status of the FIRST email+code match.
  There is no filtered candidate to report from; this surfaces the
  mismatch without claiming anything.

CONCURRENCY:
  Matching reads without the guard. A decision that proceeds to bind
  is re-validated under the guard by the binding state machine before
  any write; see binding.go.

SEE ALSO:
  - binding.go: Commits the claim a match decided on
  - cache.go: Memoizes pure read outcomes of this engine
*/
package ledger

import (
	"context"
	"strings"
)

// =============================================================================
// MATCHER
// =============================================================================

// Matcher selects one candidate record per verification query.
type Matcher struct {
	store Store
}

// NewMatcher creates a matching engine over the given store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Match is the result of candidate selection, before any claim commit.
type Match struct {
	Decision  Decision
	Candidate PurchaseRecord // zero unless a candidate was selected
	NeedsBind bool           // decision requires the binding state machine
}

// FindCandidate runs the selection algorithm against a fresh scan.
// It never mutates; a NeedsBind result is a proposal the binding
// state machine must re-validate under the guard.
func (m *Matcher) FindCandidate(ctx context.Context, q Query) (Match, error) {
	if strings.TrimSpace(q.Email) == "" || strings.TrimSpace(q.AccessCode) == "" {
		return Match{}, &ValidationError{
			Field:   "email/access_code",
			Message: "both are required",
		}
	}

	records, err := m.store.Scan(ctx)
	if err != nil {
		return Match{}, err
	}

	base := baseMatches(records, q)
	if len(base) == 0 {
		return Match{Decision: Decision{Valid: false, Bound: false, Reason: ReasonNotFound}}, nil
	}

	working := base
	if filter := NormalizePlugin(q.PluginFilter); q.PluginFilter != "" {
		working = nil
		for _, r := range base {
			if NormalizePlugin(r.PluginName) == filter {
				working = append(working, r)
			}
		}
		if len(working) == 0 {
			// Nothing passed the filter; report what the first base
			// match actually holds.
			first := base[0]
			return Match{Decision: Decision{
				Valid:       false,
				Bound:       first.Bound(),
				PluginFound: first.PluginName,
				Reason:      ReasonWrongPlugin,
			}}, nil
		}
	}

	candidate := selectCandidate(working, q.Candidate)
	return deriveOutcome(candidate, q), nil
}

// baseMatches selects records whose email matches case-insensitively
// and whose access code matches exactly, both after trimming.
func baseMatches(records []PurchaseRecord, q Query) []PurchaseRecord {
	email := NormalizeEmail(q.Email)
	code := strings.TrimSpace(q.AccessCode)

	var out []PurchaseRecord
	for _, r := range records {
		if NormalizeEmail(r.ClientEmail) == email && strings.TrimSpace(r.AccessCode) == code {
			out = append(out, r)
		}
	}
	return out
}

// selectCandidate applies the tie-break priority to a non-empty set.
func selectCandidate(set []PurchaseRecord, candidate string) PurchaseRecord {
	for _, r := range set {
		if !r.Bound() {
			return r
		}
	}
	if candidate != "" {
		for _, r := range set {
			if r.BindingID == candidate {
				return r
			}
		}
	}
	return set[0]
}

// deriveOutcome maps the selected record's binding state and the
// caller's intent onto a decision.
func deriveOutcome(rec PurchaseRecord, q Query) Match {
	d := Decision{ProjectName: rec.ClientName}

	switch {
	case !rec.Bound() && q.Candidate == "":
		d.Valid, d.Bound = true, false
		return Match{Decision: d, Candidate: rec}

	case !rec.Bound():
		// Unbound with a candidate supplied: a claim must be committed
		// by the binding state machine under the guard.
		d.Valid, d.Bound = true, true
		if q.ExplicitBind {
			d.Action = ActionBound
		} else {
			d.Action = ActionAutoBound
		}
		return Match{Decision: d, Candidate: rec, NeedsBind: true}

	case rec.BindingID == q.Candidate:
		d.Valid, d.Bound = true, true
		d.Action = ActionAlreadyBound
		return Match{Decision: d, Candidate: rec}

	case q.Candidate == "":
		d.Valid, d.Bound = false, true
		d.Reason = ReasonBoundRequiresUserID
		return Match{Decision: d, Candidate: rec}

	default:
		d.Valid, d.Bound = false, true
		d.Reason = ReasonBoundToOther
		return Match{Decision: d, Candidate: rec}
	}
}
