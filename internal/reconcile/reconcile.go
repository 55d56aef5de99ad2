package reconcile

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/eugenenazirov/dbcreds/internal/envfile"
	"github.com/eugenenazirov/dbcreds/internal/yamlcreds"
)

const (
	defaultEnvFile = ".env"
	defaultPattern = "*.yml"
)

// Reconciler reads the env file and the discovered YAML files of one directory
// and resolves them into a Record.
type Reconciler struct {
	dir     string
	envFile string
	pattern string
	mode    Mode
	logger  *zap.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDir sets the directory searched for inputs.
func WithDir(dir string) Option {
	return func(r *Reconciler) {
		r.dir = dir
	}
}

// WithEnvFile sets the env file name. Relative names are resolved against the directory.
func WithEnvFile(name string) Option {
	return func(r *Reconciler) {
		r.envFile = name
	}
}

// WithPattern sets the glob used to discover YAML files.
func WithPattern(pattern string) Option {
	return func(r *Reconciler) {
		r.pattern = pattern
	}
}

// WithMode selects the YAML extractor.
func WithMode(mode Mode) Option {
	return func(r *Reconciler) {
		r.mode = mode
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New constructs a Reconciler for the current directory unless overridden.
func New(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		dir:     ".",
		envFile: defaultEnvFile,
		pattern: defaultPattern,
		mode:    ModeHeuristic,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !slices.Contains(Modes(), string(r.mode)) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, r.mode)
	}
	if err := ValidatePattern(r.pattern); err != nil {
		return nil, err
	}
	return r, nil
}

// EnvPath returns the resolved location of the env file.
func (r *Reconciler) EnvPath() string {
	if filepath.IsAbs(r.envFile) {
		return r.envFile
	}
	return filepath.Join(r.dir, r.envFile)
}

// Reconcile performs one full run. A missing env file or any unreadable YAML
// file aborts the run.
func (r *Reconciler) Reconcile(ctx context.Context) (Record, error) {
	env, err := envfile.ParseFile(r.EnvPath())
	if err != nil {
		return Record{}, fmt.Errorf("read env file: %w", err)
	}

	files, err := Discover(r.dir, r.pattern)
	if err != nil {
		return Record{}, err
	}

	accumulated := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		creds, err := r.extract(path)
		if err != nil {
			return Record{}, fmt.Errorf("read yaml file: %w", err)
		}
		maps.Copy(accumulated, creds)
	}

	r.logger.Debug("credentials reconciled",
		zap.Int("env_keys", len(env)),
		zap.Int("yaml_files", len(files)),
		zap.Int("yaml_keys", len(accumulated)),
	)

	return Resolve(env, accumulated), nil
}

func (r *Reconciler) extract(path string) (map[string]string, error) {
	if r.mode == ModeNested {
		return yamlcreds.ExtractNestedFile(path)
	}

	creds, err := yamlcreds.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	r.reportDivergence(path, creds)
	return creds, nil
}

// reportDivergence logs the keys on which the heuristic disagrees with a
// nesting-aware parse. Values are never logged.
func (r *Reconciler) reportDivergence(path string, heuristic map[string]string) {
	nested, err := yamlcreds.ExtractNestedFile(path)
	if err != nil {
		r.logger.Debug("nesting check skipped", zap.String("file", path), zap.Error(err))
		return
	}
	if keys := yamlcreds.Diff(heuristic, nested); len(keys) > 0 {
		r.logger.Warn("heuristic extraction diverges from YAML nesting",
			zap.String("file", path),
			zap.Strings("keys", keys),
		)
	}
}

// Resolve maps the env and accumulated YAML credentials onto the output record.
// The env file always takes precedence.
func Resolve(env, yaml map[string]string) Record {
	return Record{
		Database:     firstNonEmpty(lookup(env, "MYSQL_DATABASE"), lookup(yaml, "name"), lookup(yaml, "db_name")),
		User:         firstNonEmpty(lookup(env, "MYSQL_USER"), lookup(yaml, "user"), lookup(yaml, "db_user")),
		Password:     firstNonEmpty(lookup(env, "MYSQL_PASSWORD"), lookup(yaml, "password"), lookup(yaml, "db_pass")),
		RootPassword: firstNonEmpty(lookup(env, "MYSQL_ROOT_PASSWORD")),
	}
}

func lookup(m map[string]string, key string) *string {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

// firstNonEmpty returns the first present, non-empty candidate. When none
// qualifies the last candidate is returned as is, which keeps an explicitly
// empty final value distinct from an absent one.
func firstNonEmpty(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
