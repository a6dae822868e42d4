package usecase

import (
	"sort"

	"github.com/matchcal/matchcal/internal/domain/match"
)

type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Operation is one planned calendar mutation. Record is set for creates and
// updates; Event for updates and deletes.
type Operation struct {
	Type   OpType
	Key    match.Key
	Record match.Record
	Event  RemoteEvent
}

// Plan is the ordered outcome of a reconciliation pass. Creates run first and
// deletes last to minimize the window where a fixture has zero or duplicate
// representation on the calendar; order within a category is insignificant.
type Plan struct {
	Creates []Operation
	Updates []Operation
	Deletes []Operation
}

func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Size is the total number of planned operations.
func (p Plan) Size() int {
	return len(p.Creates) + len(p.Updates) + len(p.Deletes)
}

// FullWipe reports a plan that only deletes with nothing desired left. It is
// legitimate ("no matches currently scheduled") but logged loudly upstream.
func (p Plan) FullWipe() bool {
	return len(p.Deletes) > 0 && len(p.Creates) == 0 && len(p.Updates) == 0
}

// BuildPlan diffs the desired fixture list against the owned remote events.
//
// Desired keys absent remotely become creates, present-but-differing keys
// become updates, identical keys produce nothing, and remote keys no longer
// desired become deletes. Because the time of day is excluded from the key, a
// provisional kickoff finalized on the same date is always an update against
// the original event, never a delete/create pair. Running the planner again
// over its own output yields an empty plan.
//
// Duplicate desired keys collapse last-one-wins; the source is not expected to
// schedule the same two teams twice on one date.
func BuildPlan(desired []match.Record, existing map[match.Key]RemoteEvent, tmpl EventTemplate) Plan {
	desiredByKey := make(map[match.Key]match.Record, len(desired))
	for _, r := range desired {
		desiredByKey[r.Key()] = r
	}

	var plan Plan

	for _, key := range sortedRecordKeys(desiredByKey) {
		record := desiredByKey[key]
		ev, ok := existing[key]
		if !ok {
			plan.Creates = append(plan.Creates, Operation{Type: OpCreate, Key: key, Record: record})
			continue
		}
		if tmpl.Differs(ev, record) {
			plan.Updates = append(plan.Updates, Operation{Type: OpUpdate, Key: key, Record: record, Event: ev})
		}
	}

	for _, key := range sortedEventKeys(existing) {
		if _, ok := desiredByKey[key]; !ok {
			plan.Deletes = append(plan.Deletes, Operation{Type: OpDelete, Key: key, Event: existing[key]})
		}
	}

	return plan
}

func sortedRecordKeys(m map[match.Key]match.Record) []match.Key {
	keys := make([]match.Key, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedEventKeys(m map[match.Key]RemoteEvent) []match.Key {
	keys := make([]match.Key, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
