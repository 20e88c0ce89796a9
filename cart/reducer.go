package cart

import (
	"storefront/models"
)

// Kind identifies a cart action.
type Kind int

const (
	ActionAdd Kind = iota
	ActionIncrement
	ActionDecrement
	ActionRemove
	ActionClear
	ActionRestore
	ActionRemoveMany
)

func (k Kind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionIncrement:
		return "increment"
	case ActionDecrement:
		return "decrement"
	case ActionRemove:
		return "remove"
	case ActionClear:
		return "clear"
	case ActionRestore:
		return "restore"
	case ActionRemoveMany:
		return "remove_many"
	default:
		return "unknown"
	}
}

// Action is one state transition request.
type Action struct {
	Kind       Kind
	Line       models.CartLine   // add
	Identity   string            // increment, decrement, remove
	Identities []string          // remove_many
	Lines      []models.CartLine // restore
}

// Reduce returns the cart that results from applying a to state.
// state is never modified.
func Reduce(state []models.CartLine, a Action) []models.CartLine {
	next, _ := reduce(state, a)
	return next
}

// reduce reports whether the action changed anything so the store can
// skip version bumps on no-ops.
func reduce(state []models.CartLine, a Action) ([]models.CartLine, bool) {
	switch a.Kind {
	case ActionAdd:
		if i := indexOf(state, a.Line.Identity); i >= 0 {
			next := clone(state)
			next[i].Quantity++
			return next, true
		}
		line := a.Line
		line.Quantity = 1
		return append(clone(state), line), true

	case ActionIncrement:
		i := indexOf(state, a.Identity)
		if i < 0 {
			return state, false
		}
		next := clone(state)
		next[i].Quantity++
		return next, true

	case ActionDecrement:
		i := indexOf(state, a.Identity)
		if i < 0 {
			return state, false
		}
		next := clone(state)
		next[i].Quantity--
		if next[i].Quantity <= 0 {
			next = append(next[:i], next[i+1:]...)
		}
		return next, true

	case ActionRemove:
		i := indexOf(state, a.Identity)
		if i < 0 {
			return state, false
		}
		next := clone(state)
		return append(next[:i], next[i+1:]...), true

	case ActionRemoveMany:
		drop := make(map[string]struct{}, len(a.Identities))
		for _, id := range a.Identities {
			drop[id] = struct{}{}
		}
		next := make([]models.CartLine, 0, len(state))
		for _, l := range state {
			if _, ok := drop[l.Identity]; !ok {
				next = append(next, l)
			}
		}
		return next, len(next) != len(state)

	case ActionClear:
		return []models.CartLine{}, len(state) > 0

	case ActionRestore:
		// Persisted data is untrusted: merge duplicates and drop empty lines.
		next := make([]models.CartLine, 0, len(a.Lines))
		for _, l := range a.Lines {
			if l.Identity == "" || l.Quantity <= 0 || l.UnitPrice.IsNegative() {
				continue
			}
			if i := indexOf(next, l.Identity); i >= 0 {
				next[i].Quantity += l.Quantity
				continue
			}
			next = append(next, l)
		}
		return next, true
	}
	return state, false
}

func indexOf(lines []models.CartLine, identity string) int {
	for i := range lines {
		if lines[i].Identity == identity {
			return i
		}
	}
	return -1
}

func clone(lines []models.CartLine) []models.CartLine {
	next := make([]models.CartLine, len(lines), len(lines)+1)
	copy(next, lines)
	return next
}
