package domain

// EligibilityQuery describes which products a pass should pick up.
// Repositories may push it down to SQL; Matches is the reference predicate.
type EligibilityQuery struct {
	Kind       SyncKind
	Exclusions Exclusions
	Limit      int // 0 = unbounded
}

// Matches evaluates the query against one product and its sync state.
func (q EligibilityQuery) Matches(p ProductView, st SyncState) bool {
	if !p.Status.Syncable() {
		return false
	}
	if q.Exclusions.Excludes(p) {
		return false
	}
	if q.Kind.IsFull() {
		return st.Need == NeedFull || st.NeverSynced()
	}
	// Full incluye Light: un producto editado tambien espera su stock.
	return st.Need >= NeedLight
}
