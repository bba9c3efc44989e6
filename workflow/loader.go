package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Definition is a YAML workflow definition as authored on disk.
type Definition struct {
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Tasks       []*Task  `yaml:"tasks" validate:"required,dive"`
}

// Build materializes the definition into a validated Workflow with a
// fresh ID and every task pending.
func (d *Definition) Build() (*Workflow, error) {
	w := New(d.Name, d.Description)
	w.Tags = d.Tags

	for _, t := range d.Tasks {
		task := *t
		if err := w.AddTask(&task); err != nil {
			return nil, err
		}
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// DefinitionLoader loads workflow definitions by name.
type DefinitionLoader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories
// for workflow YAML files.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches for {name}.yaml and {name}.yml in each configured
// directory.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if d, err := LoadDefinition(path); err == nil {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("workflow: definition %q not found in %v", name, l.dirs)
}

// LoadDefinition reads and parses a workflow definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("workflow: parsing %s: %w", path, err)
	}
	return &d, nil
}
