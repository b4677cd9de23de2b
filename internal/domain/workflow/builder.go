package workflow

import (
	"fmt"
	"sort"
)

// Transition is one permitted status change
type Transition struct {
	From    Status  `json:"from"`
	Trigger Trigger `json:"trigger"`
	To      Status  `json:"to"`
}

// TransitionTable is the closed status vocabulary of a request kind together with the
// transitions allowed between those statuses.
type TransitionTable struct {
	vocabulary  map[Status]bool
	transitions map[Status]map[Trigger][]Status
}

// StateConfiguration configures transitions leaving a single status
type StateConfiguration struct {
	table *TransitionTable
	from  Status
}

// NewTransitionTable creates a table restricted to the given vocabulary
func NewTransitionTable(vocabulary ...Status) *TransitionTable {
	t := &TransitionTable{
		vocabulary:  make(map[Status]bool, len(vocabulary)),
		transitions: make(map[Status]map[Trigger][]Status),
	}
	for _, s := range vocabulary {
		if !s.IsValid() {
			panic(fmt.Sprintf("invalid status: %s", s))
		}
		t.vocabulary[s] = true
	}
	return t
}

// Configure returns the configuration for transitions leaving the given status
func (t *TransitionTable) Configure(from Status) *StateConfiguration {
	if !t.vocabulary[from] {
		panic(fmt.Sprintf("status %s is not part of the vocabulary", from))
	}
	if _, ok := t.transitions[from]; !ok {
		t.transitions[from] = make(map[Trigger][]Status)
	}
	return &StateConfiguration{table: t, from: from}
}

// Permit allows the trigger to move the request to the target status
func (c *StateConfiguration) Permit(trigger Trigger, to Status) *StateConfiguration {
	if !c.table.vocabulary[to] {
		panic(fmt.Sprintf("target status %s is not part of the vocabulary", to))
	}
	c.table.transitions[c.from][trigger] = append(c.table.transitions[c.from][trigger], to)
	return c
}

// Contains returns true if the status belongs to the vocabulary
func (t *TransitionTable) Contains(s Status) bool {
	return t.vocabulary[s]
}

// Vocabulary returns the statuses of the table in lexical order
func (t *TransitionTable) Vocabulary() []Status {
	out := make([]Status, 0, len(t.vocabulary))
	for s := range t.vocabulary {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Permits returns true if the trigger may move the request from one status to the other
func (t *TransitionTable) Permits(from Status, trigger Trigger, to Status) bool {
	for _, target := range t.transitions[from][trigger] {
		if target == to {
			return true
		}
	}
	return false
}

// From returns all transitions leaving the status, ordered by trigger then target
func (t *TransitionTable) From(from Status) []Transition {
	byTrigger := t.transitions[from]
	out := make([]Transition, 0, len(byTrigger))
	for trigger, targets := range byTrigger {
		for _, to := range targets {
			out = append(out, Transition{From: from, Trigger: trigger, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trigger != out[j].Trigger {
			return out[i].Trigger < out[j].Trigger
		}
		return out[i].To < out[j].To
	})
	return out
}
