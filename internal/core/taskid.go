package core

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// Defaults for task identifiers: TASK-001, TASK-002, ...
const (
	DefaultTaskIDPrefix   = "TASK"
	DefaultTaskIDPadWidth = 3
)

// TaskIDAllocator hands out the smallest unused numeric suffix so IDs freed
// by archived or deleted tasks are reused and the sequence stays dense.
type TaskIDAllocator struct {
	prefix   string
	padWidth int
	pattern  *regexp.Regexp
}

// NewTaskIDAllocator creates an allocator for IDs of the form
// {prefix}-{n:0padWidth}. Numbers wider than padWidth are never truncated.
func NewTaskIDAllocator(prefix string, padWidth int) *TaskIDAllocator {
	if prefix == "" {
		prefix = DefaultTaskIDPrefix
	}
	if padWidth <= 0 {
		padWidth = DefaultTaskIDPadWidth
	}
	return &TaskIDAllocator{
		prefix:   prefix,
		padWidth: padWidth,
		pattern:  regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(\d+)$`),
	}
}

var defaultAllocator = NewTaskIDAllocator(DefaultTaskIDPrefix, DefaultTaskIDPadWidth)

// CreateTaskID returns the smallest free TASK-NNN ID on the board.
func CreateTaskID(board *models.Board) string {
	return defaultAllocator.CreateTaskID(board)
}

// CreateTaskID returns the smallest free ID among the board's items.
func (a *TaskIDAllocator) CreateTaskID(board *models.Board) string {
	return a.Allocate(board, nil)
}

// Allocate is CreateTaskID with an extra occupancy check, used to step over
// IDs whose files exist but were skipped during hydration.
func (a *TaskIDAllocator) Allocate(board *models.Board, taken func(id string) bool) string {
	used := make(map[int]struct{})
	if board != nil {
		for _, t := range board.Items {
			if n, ok := a.Parse(t.ID); ok {
				used[n] = struct{}{}
			}
		}
	}

	for n := 1; ; n++ {
		if _, ok := used[n]; ok {
			continue
		}
		id := a.Format(n)
		if taken != nil && taken(id) {
			continue
		}
		return id
	}
}

// Format renders n as a task ID.
func (a *TaskIDAllocator) Format(n int) string {
	return fmt.Sprintf("%s-%0*d", a.prefix, a.padWidth, n)
}

// Parse extracts the positive numeric suffix of id.
func (a *TaskIDAllocator) Parse(id string) (int, bool) {
	m := a.pattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
