// Package scaffold creates the files of a new lockstep project and new
// migration files.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfigExists is returned by Init when lockstep.toml exists and Force is
// not set.
var ErrConfigExists = errors.New("lockstep.toml already exists (use --force to overwrite)")

var (
	envNamePattern       = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	migrationNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	sequencePattern      = regexp.MustCompile(`^(\d+)_`)
)

// InitOptions controls Init.
type InitOptions struct {
	Dir           string
	Environment   string
	DatabaseURL   string
	MigrationsDir string
	Force         bool
}

// InitResult lists what Init wrote.
type InitResult struct {
	ConfigPath       string
	MigrationsDir    string
	EnvFile          string
	GitignoreUpdated bool
}

// ValidateEnvironmentName checks that name can be used in a .env.<name> file
// and a TOML table key.
func ValidateEnvironmentName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("environment name must contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}

// Init writes lockstep.toml, creates the migrations directory and keeps
// .env.* files out of git. A database URL goes to .env.<environment>, never
// to lockstep.toml.
func Init(opts InitOptions) (*InitResult, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Environment == "" {
		opts.Environment = "local"
	}
	if opts.MigrationsDir == "" {
		opts.MigrationsDir = "migrations"
	}
	if err := ValidateEnvironmentName(opts.Environment); err != nil {
		return nil, err
	}

	result := &InitResult{
		ConfigPath:    filepath.Join(opts.Dir, "lockstep.toml"),
		MigrationsDir: filepath.Join(opts.Dir, opts.MigrationsDir),
	}

	if _, err := os.Stat(result.ConfigPath); err == nil && !opts.Force {
		return nil, ErrConfigExists
	}

	if err := os.MkdirAll(result.MigrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	if err := os.WriteFile(result.ConfigPath, []byte(configTOML(opts)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write lockstep.toml: %w", err)
	}

	if opts.DatabaseURL != "" {
		result.EnvFile = filepath.Join(opts.Dir, ".env."+opts.Environment)
		if err := writeEnvFile(result.EnvFile, opts.Environment, opts.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", result.EnvFile, err)
		}
	}

	updated, err := updateGitignore(filepath.Join(opts.Dir, ".gitignore"))
	if err != nil {
		return nil, fmt.Errorf("failed to update .gitignore: %w", err)
	}
	result.GitignoreUpdated = updated

	return result, nil
}

func configTOML(opts InitOptions) string {
	var b strings.Builder

	b.WriteString("# lockstep configuration\n")
	b.WriteString("# Credentials belong in .env.<environment> files, not here.\n\n")
	fmt.Fprintf(&b, "default_environment = %q\n", opts.Environment)
	fmt.Fprintf(&b, "migrations_dir = %q\n\n", filepath.ToSlash(opts.MigrationsDir))
	fmt.Fprintf(&b, "[environments.%s]\n", opts.Environment)
	fmt.Fprintf(&b, "# Connection: .env.%s (DATABASE_URL)\n", opts.Environment)

	return b.String()
}

func writeEnvFile(path, env, databaseURL string) error {
	body, err := godotenv.Marshal(map[string]string{"DATABASE_URL": databaseURL})
	if err != nil {
		return err
	}

	content := fmt.Sprintf("# lockstep environment: %s\n# Do not commit this file.\n%s\n", env, body)
	return os.WriteFile(path, []byte(content), 0o600)
}

// updateGitignore appends a .env.* rule unless one is present.
func updateGitignore(path string) (bool, error) {
	content := ""
	if data, err := os.ReadFile(path); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if strings.Contains(content, ".env.*") {
		return false, nil
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	content += `
# lockstep environment files (contain database credentials)
.env.*
!.env.*.example
`
	return true, os.WriteFile(path, []byte(content), 0o644)
}

// NewMigrationOptions controls NewMigration.
type NewMigrationOptions struct {
	Dir       string
	Name      string
	DependsOn []string
	// Table, when set, starts the migration with a create_table operation.
	Table string
	Now   time.Time
}

// NewMigration writes dir/NNNN_name.toml, numbered after the highest existing
// prefix, and returns its path and migration name.
func NewMigration(opts NewMigrationOptions) (string, string, error) {
	if !migrationNamePattern.MatchString(opts.Name) {
		return "", "", fmt.Errorf("invalid migration name %q: use lowercase letters, digits and underscores", opts.Name)
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to read migrations directory: %w", err)
	}

	next := 1
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		m := sequencePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
			next = n + 1
		}
	}

	name := fmt.Sprintf("%04d_%s", next, opts.Name)
	path := filepath.Join(opts.Dir, name+".toml")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(migrationTOML(opts)); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, name, nil
}

func migrationTOML(opts NewMigrationOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Created %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "description = %q\n", strings.ReplaceAll(opts.Name, "_", " "))

	if len(opts.DependsOn) > 0 {
		quoted := make([]string, len(opts.DependsOn))
		for i, dep := range opts.DependsOn {
			quoted[i] = strconv.Quote(dep)
		}
		fmt.Fprintf(&b, "depends_on = [%s]\n", strings.Join(quoted, ", "))
	}

	b.WriteString("\n[[operations]]\n")
	if opts.Table != "" {
		b.WriteString("type = \"create_table\"\n")
		fmt.Fprintf(&b, "table = %q\n", opts.Table)
		b.WriteString("fields = [\n")
		b.WriteString("  { name = \"id\", type = \"bigserial\", primary_key = true },\n")
		b.WriteString("]\n")
		return b.String()
	}

	b.WriteString("type = \"run_sql\"\n")
	b.WriteString("sql = [\"SELECT 1\"]\n")
	b.WriteString("reverse_sql = [\"SELECT 1\"]\n")
	return b.String()
}
