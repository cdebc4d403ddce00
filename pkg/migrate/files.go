package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

//go:embed migrations/*.sql
var embedded embed.FS

var (
	fileNameRe     = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Source resolves the migration set: the embedded one when dir is empty,
// otherwise the files on disk.
func Source(dir string) fs.FS {
	if strings.TrimSpace(dir) == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// ValidateDir checks the migrations in dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks file names, version uniqueness and that every file declares
// an Up section followed by a Down section.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	seen := make(map[string]string, len(names))
	for _, name := range names {
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		up := strings.Index(string(body), "-- +goose Up")
		down := strings.Index(string(body), "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		case down < 0:
			return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		case down < up:
			return fmt.Errorf("migration %q declares Down before Up", name)
		}
	}
	return nil
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<name>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now().UTC())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version := now.Format(versionLayout)
	if latest, err := latestVersion(os.DirFS(dir)); err != nil {
		return "", err
	} else if latest >= version {
		return "", fmt.Errorf("version %s is not after existing migration %s", version, latest)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- rollback %[1]s\n-- +goose StatementEnd\n", slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func latestVersion(fsys fs.FS) (string, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return "", fmt.Errorf("list migrations: %w", err)
	}
	latest := ""
	for _, name := range names {
		if m := fileNameRe.FindStringSubmatch(name); m != nil && m[1] > latest {
			latest = m[1]
		}
	}
	return latest, nil
}
