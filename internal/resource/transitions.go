package resource

// Transitions restricts which status may follow which. A nil table, or a
// status without an entry, allows every move.
type Transitions map[string][]string

func (t Transitions) Allowed(from, to string) bool {
	if from == to {
		return true
	}
	next, ok := t[from]
	if !ok {
		return true
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
