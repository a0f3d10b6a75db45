package core

import (
	"cmp"
	"math"
	"sort"
	"strings"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// columnRank orders phases by how active they are: work being built
// surfaces first, finished work last.
var columnRank = map[string]int{
	models.ColumnBuild:      0,
	models.ColumnVerify:     1,
	models.ColumnPlan:       2,
	models.ColumnUnderstand: 3,
	models.ColumnBacklog:    4,
	models.ColumnDone:       5,
}

const unknownColumnRank = 6

// ColumnRank returns the display rank of a column ID.
func ColumnRank(columnID string) int {
	if r, ok := columnRank[columnID]; ok {
		return r
	}
	return unknownColumnRank
}

const undefinedPriorityRank = 3

// PriorityRank maps a raw priority to 0 (high) .. 2 (low), and 3 when unset
// or unrecognized. Matching is case-insensitive.
func PriorityRank(p models.Priority) int {
	switch strings.ToLower(strings.TrimSpace(string(p))) {
	case "high", "p0", "critical":
		return 0
	case "medium", "p1":
		return 1
	case "low":
		return 2
	}
	return undefinedPriorityRank
}

// updatedAtKey parses updatedAt into a sortable key. Missing or unparsable
// timestamps yield nil so they sort last.
func updatedAtKey(raw string) *int64 {
	ts, ok := models.ParseTimestamp(raw)
	if !ok {
		return nil
	}
	v := ts.UnixNano()
	return &v
}

// compareUndefinedLast orders defined values ascending and puts nil after
// every defined value.
func compareUndefinedLast[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

func ptr[T any](v T) *T { return &v }

// CompareTasks is the display order: column activity, then priority, then
// oldest update first. Undated tasks sort after dated ones (they behave as
// math.MaxInt64).
func CompareTasks(a, b *models.Task) int {
	if c := compareUndefinedLast(ptr(ColumnRank(a.ColumnID)), ptr(ColumnRank(b.ColumnID))); c != 0 {
		return c
	}
	if c := compareUndefinedLast(ptr(PriorityRank(a.Priority)), ptr(PriorityRank(b.Priority))); c != 0 {
		return c
	}
	return compareUndefinedLast(recencyKey(a), recencyKey(b))
}

func recencyKey(t *models.Task) *int64 {
	if k := updatedAtKey(t.UpdatedAt); k != nil {
		return k
	}
	return ptr(int64(math.MaxInt64))
}

// SortTasks sorts tasks in place by CompareTasks. Equal tasks keep their
// relative order.
func SortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return CompareTasks(&tasks[i], &tasks[j]) < 0
	})
}

// RankCandidates returns the unclaimed todo tasks of the intake column, best
// candidate first: highest priority, then least recently updated, then ID.
func RankCandidates(tasks []models.Task, intakeColumn string) []models.Task {
	var candidates []models.Task
	for _, t := range tasks {
		if t.ColumnID != intakeColumn {
			continue
		}
		if t.StatusOrDefault() != models.StatusTodo || t.IsClaimed() {
			continue
		}
		candidates = append(candidates, t)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if c := cmp.Compare(PriorityRank(a.Priority), PriorityRank(b.Priority)); c != 0 {
			return c < 0
		}
		if c := compareUndefinedLast(updatedAtKey(a.UpdatedAt), updatedAtKey(b.UpdatedAt)); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return candidates
}

// PickNextTask returns the ID of the best unclaimed intake task, or false
// when none is available. It does not reserve the task; claim it next.
func PickNextTask(tasks []models.Task, intakeColumn string) (string, bool) {
	candidates := RankCandidates(tasks, intakeColumn)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].ID, true
}
