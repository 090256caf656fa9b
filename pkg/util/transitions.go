package util

// Transitions maps each state to the set of states it may move to. A state
// mapped to an empty set is terminal
type Transitions[T comparable] map[T]Set[T]

// CanTransition returns whether a move between the two states is allowed
func (t Transitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t Transitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}
