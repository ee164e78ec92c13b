package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

var (
	// ErrModelNotFound is returned when no version of a key has been saved.
	ErrModelNotFound = errors.New("model not found")
	// ErrCorruptArtifact is returned when a stored payload fails its checksum.
	ErrCorruptArtifact = errors.New("artifact checksum mismatch")
	// ErrInvalidName is returned for keys that are not safe path segments.
	ErrInvalidName = errors.New("invalid artifact name")
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// Backend stores immutable artifact versions and a per-key pointer to the
// latest one. Write must make the version readable before advancing the pointer.
type Backend interface {
	Latest(ctx context.Context, name string) (int, error)
	Read(ctx context.Context, name string, version int) ([]byte, error)
	Write(ctx context.Context, name string, version int, data []byte) error
}

// Artifact is the stored envelope around a trained model's parameters.
type Artifact struct {
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Checksum  string          `json:"checksum"`
	RunID     string          `json:"run_id,omitempty"`
	TrainedAt time.Time       `json:"trained_at"`
	Features  []string        `json:"features,omitempty"`
	Targets   []string        `json:"targets,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Meta describes how an artifact was produced.
type Meta struct {
	RunID    string
	Features []string
	Targets  []string
}

type entry struct {
	artifact *Artifact
	value    any
}

// Registry saves versioned artifacts and caches the decoded latest version of
// each key until Reload.
type Registry struct {
	backend Backend
	log     logger.Logger
	now     func() time.Time

	saveMu sync.Mutex

	mu    sync.Mutex
	cache map[string]entry
}

// New creates a Registry on top of backend.
func New(backend Backend, log logger.Logger) *Registry {
	return &Registry{
		backend: backend,
		log:     logger.WithComponent(log, "registry"),
		now:     func() time.Time { return time.Now().UTC() },
		cache:   make(map[string]entry),
	}
}

// Save serialises payload as the next version of name.
func (r *Registry) Save(ctx context.Context, name string, meta Meta, payload any) (*Artifact, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	latest, err := r.backend.Latest(ctx, name)
	if err != nil && !errors.Is(err, ErrModelNotFound) {
		return nil, fmt.Errorf("resolve latest %s: %w", name, err)
	}

	art := &Artifact{
		Name:      name,
		Version:   latest + 1,
		Checksum:  checksum(body),
		RunID:     meta.RunID,
		TrainedAt: r.now(),
		Features:  meta.Features,
		Targets:   meta.Targets,
		Payload:   body,
	}
	data, err := json.Marshal(art)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", name, err)
	}
	if err := r.backend.Write(ctx, name, art.Version, data); err != nil {
		return nil, fmt.Errorf("write %s v%d: %w", name, art.Version, err)
	}

	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()

	r.log.WithFields(map[string]interface{}{
		"key":     name,
		"version": art.Version,
		"run_id":  art.RunID,
	}).Info("saved artifact")
	return art, nil
}

// Load returns the latest envelope of name without caching it.
func (r *Registry) Load(ctx context.Context, name string) (*Artifact, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	version, err := r.backend.Latest(ctx, name)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, fmt.Errorf("resolve latest %s: %w", name, err)
	}

	data, err := r.backend.Read(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("read %s v%d: %w", name, version, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode envelope %s v%d: %w", name, version, err)
	}
	if checksum(art.Payload) != art.Checksum {
		return nil, fmt.Errorf("%w: %s v%d", ErrCorruptArtifact, name, version)
	}
	return &art, nil
}

// Missing returns the names that have no saved version. Other lookup errors
// are returned as-is.
func (r *Registry) Missing(ctx context.Context, names ...string) ([]string, error) {
	var missing []string
	for _, name := range names {
		if !validName.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		_, err := r.backend.Latest(ctx, name)
		if errors.Is(err, ErrModelNotFound) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve latest %s: %w", name, err)
		}
	}
	return missing, nil
}

// Reload drops every cached artifact so the next lookup reads the latest
// version from the backend.
func (r *Registry) Reload() {
	r.mu.Lock()
	r.cache = make(map[string]entry)
	r.mu.Unlock()
	r.log.Info("artifact cache cleared")
}

// LoadAs returns the decoded payload of name's latest version, caching it for
// subsequent calls.
func LoadAs[T any](ctx context.Context, r *Registry, name string) (*T, *Artifact, error) {
	r.mu.Lock()
	e, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		if v, ok := e.value.(*T); ok {
			return v, e.artifact, nil
		}
	}

	art, err := r.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	v := new(T)
	if err := json.Unmarshal(art.Payload, v); err != nil {
		return nil, nil, fmt.Errorf("decode %s v%d: %w", name, art.Version, err)
	}

	r.mu.Lock()
	r.cache[name] = entry{artifact: art, value: v}
	r.mu.Unlock()

	r.log.WithFields(map[string]interface{}{
		"key":     name,
		"version": art.Version,
	}).Info("loaded artifact")
	return v, art, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func objectName(name string, version int) string {
	return fmt.Sprintf("%s/v%06d.json", name, version)
}

func latestName(name string) string {
	return name + "/LATEST"
}
