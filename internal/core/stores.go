package core

import "github.com/NunoMoura/dev-ops-sub000/pkg/models"

// BoardStore is the subset of storage.BoardStore that TaskManager needs.
// Defining it here keeps core independent of the storage package.
type BoardStore interface {
	ReadBoard() (*models.Board, error)
	WriteBoard(board *models.Board) error
	CreateEmptyBoard() *models.Board
}

// TaskStore is the subset of storage.TaskRepository that TaskManager needs.
type TaskStore interface {
	SaveTask(task *models.Task) error
	LoadTask(taskID string) (*models.Task, error)
	TaskExists(taskID string) bool
}
