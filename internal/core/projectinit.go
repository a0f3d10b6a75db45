package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"gopkg.in/yaml.v3"
)

// InitConfig holds the parameters for initializing a workspace.
type InitConfig struct {
	BasePath  string
	Developer string
	Prefix    string
}

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// ProjectInitializer lays out the .dev_ops data directory of a workspace.
type ProjectInitializer interface {
	Init(config InitConfig) (*InitResult, error)
}

// BoardStoreFactory opens the board store of the workspace at root.
type BoardStoreFactory func(root string) BoardStore

type projectInitializer struct {
	openBoards BoardStoreFactory
}

// NewProjectInitializer creates a ProjectInitializer that writes the board
// file through a store opened for the target path.
func NewProjectInitializer(openBoards BoardStoreFactory) ProjectInitializer {
	return &projectInitializer{openBoards: openBoards}
}

const configTemplate = `# dev-ops workspace configuration
developer:
  name: {{ yaml .Developer }}
task_id:
  prefix: {{ yaml .Prefix }}
  pad_width: 3
hydration:
  enabled: true
board:
  intake_column: col-backlog
  working_column: col-understand
  done_column: col-done
alerts:
  stale_session_hours: 24
  blocked_hours: 48
`

const gitignoreContent = `.board.lock
tasks/*/.lock
events.jsonl
`

// Init creates the data directory, config file and board file. It is safe to
// run on an existing workspace: anything already present is skipped.
func (pi *projectInitializer) Init(config InitConfig) (*InitResult, error) {
	result := &InitResult{}

	if config.Prefix == "" {
		config.Prefix = DefaultTaskIDPrefix
	}
	if !validPrefixPattern.MatchString(config.Prefix) {
		return nil, fmt.Errorf("initializing workspace: task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}", config.Prefix)
	}
	if strings.ContainsAny(config.Developer, "\r\n") {
		return nil, fmt.Errorf("initializing workspace: developer name must be a single line")
	}

	dataRoot := taskpath.DataRoot(config.BasePath)
	for _, dir := range []string{dataRoot, taskpath.TasksDir(config.BasePath)} {
		created, err := ensureDir(dir)
		if err != nil {
			return nil, fmt.Errorf("initializing workspace: creating directory %s: %w", dir, err)
		}
		if created {
			result.Created = append(result.Created, dir)
		} else {
			result.Skipped = append(result.Skipped, dir)
		}
	}

	if err := writeFileIfNotExists(taskpath.ConfigFile(config.BasePath), func() ([]byte, error) {
		return renderTemplate("config.yaml", configTemplate, config)
	}, result); err != nil {
		return nil, err
	}

	if err := writeFileIfNotExists(filepath.Join(dataRoot, ".gitignore"), func() ([]byte, error) {
		return []byte(gitignoreContent), nil
	}, result); err != nil {
		return nil, err
	}

	boardPath := taskpath.BoardFile(config.BasePath)
	if _, err := os.Stat(boardPath); err == nil {
		result.Skipped = append(result.Skipped, boardPath)
	} else {
		boards := pi.openBoards(config.BasePath)
		if err := boards.WriteBoard(boards.CreateEmptyBoard()); err != nil {
			return nil, fmt.Errorf("initializing workspace: %w", err)
		}
		result.Created = append(result.Created, boardPath)
	}

	return result, nil
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileIfNotExists writes content from contentFn if the file does not exist.
// It records created/skipped in the result.
func writeFileIfNotExists(path string, contentFn func() ([]byte, error), result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	content, err := contentFn()
	if err != nil {
		return fmt.Errorf("initializing workspace: generating content for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("initializing workspace: writing %s: %w", path, err)
	}
	result.Created = append(result.Created, path)
	return nil
}

// yamlScalar renders v as a single-line YAML scalar, quoted when needed.
func yamlScalar(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func renderTemplate(name, content string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{"yaml": yamlScalar}).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
