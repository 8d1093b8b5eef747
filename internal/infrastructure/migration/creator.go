package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

var stub = template.Must(template.New("migration").Parse(`-- Migration: {{.Name}}{{if .Down}} (Rollback){{end}}
-- Created: {{.Timestamp}}
-- Description: {{if .Down}}Rollback for {{end}}{{.Description}}

-- Write your {{if .Down}}DOWN{{else}}UP{{end}} migration SQL here

`))

// versionDigits is the zero-padded width of the sequence prefix
const versionDigits = 6

var upFileName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.up\.sql$`)

// MigrationFile describes a freshly written up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes the next numbered up/down pair into migrationsDir.
// Existing files are never overwritten.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	latest, err := LatestVersion(os.DirFS(migrationsDir))
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionDigits, latest+1)
	base := filepath.Join(migrationsDir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeStub(mf.UpPath, mf, false); err != nil {
		return nil, err
	}
	if err := writeStub(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeStub(path string, mf *MigrationFile, down bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	data := struct {
		*MigrationFile
		Down bool
	}{mf, down}
	if err := stub.Execute(f, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowers name to snake_case. Spaces, dashes and underscores separate
// words; any other character outside [a-z0-9] is dropped.
func sanitizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	kept := words[:0]
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "_")
}

// ListMigrations returns version_name for every up migration at the root of fsys, in version order.
// A missing directory has no migrations.
func ListMigrations(fsys fs.FS) ([]string, error) {
	paths, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		if m := upFileName.FindStringSubmatch(p); m != nil {
			names = append(names, m[1]+"_"+m[2])
		}
	}
	return names, nil
}

// LatestVersion returns the highest migration version in fsys, 0 when there is none
func LatestVersion(fsys fs.FS) (uint, error) {
	names, err := ListMigrations(fsys)
	if err != nil {
		return 0, err
	}
	var latest uint
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid migration version in %q: %w", name, err)
		}
		latest = max(latest, uint(v))
	}
	return latest, nil
}
