package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/skillsenselab/taskflow/errors"
	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/observability"
	"github.com/skillsenselab/taskflow/workflow"
)

// Metadata describes one saved workflow version.
type Metadata struct {
	SavedAt  time.Time `json:"saved_at"`
	Version  int       `json:"version"`
	Tags     []string  `json:"tags,omitempty"`
	Filename string    `json:"filename"`
}

// envelope is the on-disk file format.
type envelope struct {
	Workflow *workflow.Workflow `json:"workflow"`
	Metadata Metadata           `json:"_metadata"`
}

// VersionInfo summarizes one stored version of a workflow.
type VersionInfo struct {
	Version  int       `json:"version"`
	SavedAt  time.Time `json:"saved_at"`
	Tags     []string  `json:"tags,omitempty"`
	Filename string    `json:"filename"`
}

// WorkflowInfo summarizes the latest stored version of a workflow.
type WorkflowInfo struct {
	WorkflowID string         `json:"workflow_id"`
	Name       string         `json:"name"`
	Phase      workflow.Phase `json:"phase"`
	Version    int            `json:"version"`
	SavedAt    time.Time      `json:"saved_at"`
	Tags       []string       `json:"tags,omitempty"`
}

// Store persists workflows under a base directory.
type Store struct {
	basePath string
	log      *logger.Logger

	// mu serializes version allocation.
	mu sync.Mutex
}

// New creates a store rooted at basePath, creating the directory if
// needed.
func New(basePath string) (*Store, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("store: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("store: create base directory: %w", err)
	}
	return &Store{
		basePath: abs,
		log:      logger.GetGlobalLogger().WithComponent("store"),
	}, nil
}

// Save writes the workflow as a new version and returns its metadata.
func (s *Store) Save(ctx context.Context, w *workflow.Workflow, tags ...string) (*Metadata, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowSave)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrWorkflowID, w.ID)

	if w.ID == "" {
		return nil, apperrors.MissingField("workflow_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versionNumbers(w.ID)
	if err != nil {
		return nil, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	meta := Metadata{
		SavedAt:  time.Now().UTC(),
		Version:  next,
		Tags:     tags,
		Filename: versionFilename(w.ID, next),
	}

	data, err := json.MarshalIndent(envelope{Workflow: w, Metadata: meta}, "", "  ")
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("encoding workflow %s: %w", w.ID, err))
	}
	path := filepath.Join(s.basePath, meta.Filename)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("writing %s: %w", meta.Filename, err))
	}

	s.log.Info("workflow saved", logger.Fields(
		logger.FieldWorkflowID, w.ID,
		"version", meta.Version,
	))
	return &meta, nil
}

// Load returns the latest saved version of the workflow.
func (s *Store) Load(ctx context.Context, id string) (*workflow.Workflow, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowLoad)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrWorkflowID, id)

	versions, err := s.versionNumbers(id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, apperrors.NotFound("workflow", id)
	}
	return s.loadVersion(id, versions[len(versions)-1])
}

// LoadVersion returns one specific saved version of the workflow.
func (s *Store) LoadVersion(ctx context.Context, id string, version int) (*workflow.Workflow, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowLoad)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrWorkflowID, id)

	return s.loadVersion(id, version)
}

func (s *Store) loadVersion(id string, version int) (*workflow.Workflow, error) {
	path := filepath.Join(s.basePath, versionFilename(id, version))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("workflow", id)
		}
		return nil, apperrors.Storage(fmt.Errorf("reading %s: %w", path, err))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("decoding %s: %w", path, err))
	}
	if env.Workflow == nil || env.Workflow.ID == "" {
		return nil, apperrors.Validation(fmt.Sprintf("workflow file %s has no workflow payload", filepath.Base(path)))
	}
	if env.Workflow.Tasks == nil {
		env.Workflow.Tasks = make(map[string]*workflow.Task)
	}
	if err := env.Workflow.Validate(); err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("workflow file %s: %v", filepath.Base(path), err))
	}
	return env.Workflow, nil
}

// Versions lists the stored versions of a workflow, oldest first.
func (s *Store) Versions(ctx context.Context, id string) ([]VersionInfo, error) {
	numbers, err := s.versionNumbers(id)
	if err != nil {
		return nil, err
	}

	infos := make([]VersionInfo, 0, len(numbers))
	for _, v := range numbers {
		env, err := s.readEnvelope(versionFilename(id, v))
		if err != nil {
			// Unreadable versions are skipped, not fatal.
			continue
		}
		infos = append(infos, VersionInfo{
			Version:  env.Metadata.Version,
			SavedAt:  env.Metadata.SavedAt,
			Tags:     env.Metadata.Tags,
			Filename: env.Metadata.Filename,
		})
	}
	return infos, nil
}

// List summarizes the latest version of every stored workflow. With a
// non-empty tag only workflows carrying that tag are returned.
func (s *Store) List(ctx context.Context, tag string) ([]WorkflowInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*_v*.json"))
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("listing workflows: %w", err))
	}

	latest := make(map[string]int)
	for _, m := range matches {
		id, v, ok := parseVersionFilename(filepath.Base(m))
		if !ok {
			continue
		}
		if v > latest[id] {
			latest[id] = v
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var infos []WorkflowInfo
	for _, id := range ids {
		env, err := s.readEnvelope(versionFilename(id, latest[id]))
		if err != nil || env.Workflow == nil {
			continue
		}
		if tag != "" && !hasTag(env.Metadata.Tags, tag) {
			continue
		}
		infos = append(infos, WorkflowInfo{
			WorkflowID: env.Workflow.ID,
			Name:       env.Workflow.Name,
			Phase:      env.Workflow.Phase,
			Version:    env.Metadata.Version,
			SavedAt:    env.Metadata.SavedAt,
			Tags:       env.Metadata.Tags,
		})
	}
	return infos, nil
}

// Delete removes every stored version of the workflow.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versionNumbers(id)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return apperrors.NotFound("workflow", id)
	}
	for _, v := range versions {
		path := filepath.Join(s.basePath, versionFilename(id, v))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return apperrors.Storage(fmt.Errorf("deleting %s: %w", path, err))
		}
	}
	s.log.Info("workflow deleted", logger.Fields(
		logger.FieldWorkflowID, id,
		"versions", len(versions),
	))
	return nil
}

// CheckHealth reports whether the base directory is usable.
func (s *Store) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{
		Name:    "store",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"path": s.basePath},
	}
	if _, err := os.Stat(s.basePath); err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
	}
	return h
}

func (s *Store) readEnvelope(filename string) (*envelope, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, filename))
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// versionNumbers returns the sorted version numbers stored for id.
func (s *Store) versionNumbers(id string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, id+"_v*.json"))
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("listing versions of %s: %w", id, err))
	}

	var versions []int
	for _, m := range matches {
		gotID, v, ok := parseVersionFilename(filepath.Base(m))
		if !ok || gotID != id {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

func versionFilename(id string, version int) string {
	return fmt.Sprintf("%s_v%d.json", id, version)
}

// parseVersionFilename splits "{id}_v{N}.json" into its parts.
func parseVersionFilename(name string) (id string, version int, ok bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", 0, false
	}
	base := strings.TrimSuffix(name, ".json")
	i := strings.LastIndex(base, "_v")
	if i < 1 {
		return "", 0, false
	}
	v, err := strconv.Atoi(base[i+2:])
	if err != nil || v < 1 {
		return "", 0, false
	}
	return base[:i], v, true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
