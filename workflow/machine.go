package workflow

import "fmt"

// Definition describes one record kind's status machine.
type Definition struct {
	Kind Kind
	// States lists every status; the first one is the initial status.
	States []Status
	// Transitions maps a status to the statuses an officer may move it to.
	// Statuses without outgoing transitions are terminal.
	Transitions map[Status][]Status
	// Resolved lists the statuses that stamp a resolution time.
	Resolved []Status
	// SubmitterTransitions is the subset of Transitions the submitter may
	// perform on their own record.
	SubmitterTransitions map[Status][]Status
	// Deletable lists the statuses in which the submitter may still delete.
	Deletable []Status
}

// Machine validates status changes for one record kind.
type Machine struct {
	kind      Kind
	states    []Status
	known     map[Status]bool
	next      map[Status]map[Status]bool
	resolved  map[Status]bool
	submitter map[Status]map[Status]bool
	deletable map[Status]bool
}

// Actor is whoever asks for a change.
type Actor struct {
	Role        Role
	IsSubmitter bool
}

// New builds a Machine. It panics on a definition that references an unknown
// status, since definitions are package level values.
func New(def Definition) *Machine {
	m := &Machine{
		kind:      def.Kind,
		states:    append([]Status(nil), def.States...),
		known:     make(map[Status]bool, len(def.States)),
		next:      make(map[Status]map[Status]bool),
		resolved:  set(def.Resolved),
		submitter: make(map[Status]map[Status]bool),
		deletable: set(def.Deletable),
	}
	for _, s := range def.States {
		m.known[s] = true
	}
	for from, tos := range def.Transitions {
		m.mustKnow(from)
		for _, to := range tos {
			m.mustKnow(to)
		}
		m.next[from] = set(tos)
	}
	for from, tos := range def.SubmitterTransitions {
		for _, to := range tos {
			if !m.next[from][to] {
				panic(fmt.Sprintf("workflow: %s submitter transition %s -> %s is not in the transition table", def.Kind, from, to))
			}
		}
		m.submitter[from] = set(tos)
	}
	for _, s := range append(append([]Status(nil), def.Resolved...), def.Deletable...) {
		m.mustKnow(s)
	}
	return m
}

func (m *Machine) mustKnow(s Status) {
	if !m.known[s] {
		panic(fmt.Sprintf("workflow: %s does not declare status %q", m.kind, s))
	}
}

// Kind returns the record kind.
func (m *Machine) Kind() Kind { return m.kind }

// Initial returns the status new records start in.
func (m *Machine) Initial() Status { return m.states[0] }

// States returns the declared statuses in order.
func (m *Machine) States() []Status { return append([]Status(nil), m.states...) }

// Valid reports whether s belongs to the enum.
func (m *Machine) Valid(s Status) bool { return m.known[s] }

// IsTerminal reports whether no transition leaves s.
func (m *Machine) IsTerminal(s Status) bool { return len(m.next[s]) == 0 }

// IsResolved reports whether entering s stamps a resolution time.
func (m *Machine) IsResolved(s Status) bool { return m.resolved[s] }

// SubmitterMayDelete reports whether the submitter may still delete a record in s.
func (m *Machine) SubmitterMayDelete(s Status) bool { return m.deletable[s] }

// Allowed returns the statuses reachable from s in declaration order.
func (m *Machine) Allowed(from Status) []Status {
	var out []Status
	for _, s := range m.states {
		if m.next[from][s] {
			out = append(out, s)
		}
	}
	return out
}

// SubmitterMay reports whether the submitter may move a record from one status to another.
func (m *Machine) SubmitterMay(from, to Status) bool { return m.submitter[from][to] }

// Check validates a transition for the given actor. It fails closed: unknown
// target statuses, terminal sources, missing edges and unprivileged actors
// are all rejected.
func (m *Machine) Check(from, to Status, actor Actor) error {
	if !m.known[to] {
		return fmt.Errorf("%w: %q is not a %s status", ErrInvalidStatus, to, m.kind)
	}
	if m.IsTerminal(from) {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, m.kind, from)
	}
	if !m.next[from][to] {
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrTransitionNotAllowed, m.kind, from, to)
	}
	if actor.Role.Privileged() {
		return nil
	}
	if actor.IsSubmitter && m.submitter[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s role cannot move %s to %s", ErrForbidden, actor.Role, m.kind, to)
}

func set(list []Status) map[Status]bool {
	out := make(map[Status]bool, len(list))
	for _, s := range list {
		out[s] = true
	}
	return out
}
