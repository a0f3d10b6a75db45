package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NunoMoura/dev-ops-sub000/internal/storage"
	"github.com/NunoMoura/dev-ops-sub000/internal/taskpath"
	"github.com/NunoMoura/dev-ops-sub000/pkg/models"
)

func newInitializer() ProjectInitializer {
	return NewProjectInitializer(func(root string) BoardStore {
		return storage.NewBoardStore(root, storage.NewTaskRepository(root), nil)
	})
}

func TestInit_CreatesWorkspace(t *testing.T) {
	base := t.TempDir()

	result, err := newInitializer().Init(InitConfig{BasePath: base, Developer: "Alice", Prefix: "OPS"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, p := range []string{
		taskpath.DataRoot(base),
		taskpath.TasksDir(base),
		taskpath.ConfigFile(base),
		taskpath.BoardFile(base),
		filepath.Join(taskpath.DataRoot(base), ".gitignore"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not created: %v", p, err)
		}
	}
	if len(result.Skipped) != 0 {
		t.Errorf("nothing should be skipped on a fresh workspace, got %v", result.Skipped)
	}

	cfg, err := NewConfigurationManager(base).LoadGlobalConfig()
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.DeveloperName != "Alice" || cfg.TaskIDPrefix != "OPS" {
		t.Errorf("generated config = %+v", cfg)
	}
	if err := NewConfigurationManager(base).ValidateConfig(cfg); err != nil {
		t.Errorf("generated config is invalid: %v", err)
	}
}

func TestInit_BoardHasDefaultColumns(t *testing.T) {
	base := t.TempDir()
	if _, err := newInitializer().Init(InitConfig{BasePath: base}); err != nil {
		t.Fatal(err)
	}

	repo := storage.NewTaskRepository(base)
	board, err := storage.NewBoardStore(base, repo, nil).ReadBoard()
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Columns) != len(models.DefaultColumns()) || board.Version != models.BoardVersion {
		t.Errorf("unexpected board: %+v", board)
	}
}

func TestInit_Idempotent(t *testing.T) {
	base := t.TempDir()
	pi := newInitializer()
	if _, err := pi.Init(InitConfig{BasePath: base, Developer: "Alice"}); err != nil {
		t.Fatal(err)
	}

	// User edits survive a second init.
	custom := []byte("developer:\n  name: Bob\n")
	if err := os.WriteFile(taskpath.ConfigFile(base), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := pi.Init(InitConfig{BasePath: base, Developer: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Created) != 0 {
		t.Errorf("second init should create nothing, got %v", result.Created)
	}
	data, err := os.ReadFile(taskpath.ConfigFile(base))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(custom) {
		t.Errorf("config was overwritten:\n%s", data)
	}
}

func TestInit_DeveloperNameIsQuoted(t *testing.T) {
	for _, name := range []string{`Jane "JJ" Doe`, "O'Brien: ops", "yes", "#1 dev", ""} {
		t.Run(name, func(t *testing.T) {
			base := t.TempDir()
			if _, err := newInitializer().Init(InitConfig{BasePath: base, Developer: name}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}

			cm := NewConfigurationManager(base)
			cfg, err := cm.LoadGlobalConfig()
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if cfg.DeveloperName != name {
				t.Errorf("DeveloperName = %q, want %q", cfg.DeveloperName, name)
			}
			if err := cm.ValidateConfig(cfg); err != nil {
				t.Errorf("generated config is invalid: %v", err)
			}
		})
	}
}

func TestInit_RejectsInvalidPrefix(t *testing.T) {
	base := t.TempDir()

	_, err := newInitializer().Init(InitConfig{BasePath: base, Prefix: "task"})
	if err == nil || !strings.Contains(err.Error(), "task_id.prefix") {
		t.Fatalf("expected prefix error, got %v", err)
	}
	if _, statErr := os.Stat(taskpath.DataRoot(base)); !os.IsNotExist(statErr) {
		t.Error("nothing should be written when the prefix is invalid")
	}
}

func TestInit_RejectsMultiLineDeveloper(t *testing.T) {
	base := t.TempDir()
	if _, err := newInitializer().Init(InitConfig{BasePath: base, Developer: "a\nb"}); err == nil {
		t.Fatal("expected error for multi-line developer name")
	}
}
