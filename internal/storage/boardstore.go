package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

// BoardStore reads and writes the column layout and assembles the board's
// items from the task directory.
type BoardStore interface {
	ReadBoard() (*models.Board, error)
	WriteBoard(board *models.Board) error
	CreateEmptyBoard() *models.Board
}

// SkipHandler is notified about each task file dropped during hydration.
type SkipHandler func(rec SkippedRecord)

type fileBoardStore struct {
	root   string
	tasks  TaskRepository
	onSkip SkipHandler
}

// boardFile is the on-disk shape. Items is always written empty so
// concurrent task updates never contend on this file.
type boardFile struct {
	Version int             `json:"version"`
	Columns []models.Column `json:"columns"`
	Items   []models.Task   `json:"items"`
}

// NewBoardStore creates a BoardStore for the workspace at root. onSkip may be nil.
func NewBoardStore(root string, tasks TaskRepository, onSkip SkipHandler) BoardStore {
	return &fileBoardStore{root: root, tasks: tasks, onSkip: onSkip}
}

// CreateEmptyBoard returns the default column blueprint with no items.
func (s *fileBoardStore) CreateEmptyBoard() *models.Board {
	return NewEmptyBoard()
}

// NewEmptyBoard returns the default column blueprint with no items.
func NewEmptyBoard() *models.Board {
	return &models.Board{
		Version: models.BoardVersion,
		Columns: models.DefaultColumns(),
		Items:   []models.Task{},
	}
}

// ReadBoard parses the board file (or falls back to the default blueprint
// when it is absent) and hydrates items from the task directory.
func (s *fileBoardStore) ReadBoard() (*models.Board, error) {
	board, err := s.readColumns()
	if err != nil {
		return nil, err
	}

	items, skipped, err := s.tasks.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("reading board: %w", err)
	}
	if s.onSkip != nil {
		for _, rec := range skipped {
			s.onSkip(rec)
		}
	}
	board.Items = items
	return board, nil
}

func (s *fileBoardStore) readColumns() (*models.Board, error) {
	data, err := os.ReadFile(taskpath.BoardFile(s.root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewEmptyBoard(), nil
		}
		return nil, fmt.Errorf("reading board: %w", err)
	}

	var bf boardFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("reading board: %w: %v", models.ErrMalformedRecord, err)
	}
	if bf.Columns == nil {
		bf.Columns = []models.Column{}
	}
	return &models.Board{
		Version: bf.Version,
		Columns: bf.Columns,
		Items:   []models.Task{},
	}, nil
}

// WriteBoard persists only the version and columns.
func (s *fileBoardStore) WriteBoard(board *models.Board) error {
	if board == nil {
		return fmt.Errorf("writing board: board is nil")
	}
	bf := boardFile{
		Version: board.Version,
		Columns: board.Columns,
		Items:   []models.Task{},
	}
	if bf.Columns == nil {
		bf.Columns = []models.Column{}
	}

	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return fmt.Errorf("writing board: marshalling JSON: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(taskpath.BoardFile(s.root), data); err != nil {
		return fmt.Errorf("writing board: %w", err)
	}
	return nil
}
