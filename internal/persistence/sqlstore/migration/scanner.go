package migration

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scanner reads migration files from a filesystem.
type Scanner struct {
	files fs.FS
}

// NewScanner returns a scanner over the root of files.
func NewScanner(files fs.FS) *Scanner {
	return &Scanner{files: files}
}

// Scan returns every migration in the root directory sorted by version.
func (s *Scanner) Scan() ([]Migration, error) {
	entries, err := fs.ReadDir(s.files, ".")
	if err != nil {
		return nil, NewMigrationError("", ".", "read directory", err)
	}

	var migrations []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		m, err := s.Parse(entry.Name())
		if err != nil {
			return nil, err
		}

		if existing, ok := seen[m.Version]; ok {
			return nil, NewMigrationError(m.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, m.Version, existing, entry.Name()))
		}
		seen[m.Version] = entry.Name()
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

// ValidateFileName checks that name follows {version}_{description}.sql.
func ValidateFileName(name string) error {
	matches := fileNamePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'", ErrInvalidMigrationFile, name)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number", ErrInvalidVersion, matches[1], name)
	}
	return nil
}

// Parse reads a single migration file.
func (s *Scanner) Parse(name string) (Migration, error) {
	base := path.Base(name)
	if err := ValidateFileName(base); err != nil {
		return Migration{}, NewMigrationError("", name, "validate filename", err)
	}
	matches := fileNamePattern.FindStringSubmatch(base)
	version := matches[1]

	content, err := fs.ReadFile(s.files, name)
	if err != nil {
		return Migration{}, NewMigrationError(version, name, "read file", err)
	}
	sql := string(content)
	if strings.TrimSpace(stripComments(sql)) == "" {
		return Migration{}, NewMigrationError(version, name, "validate content",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}
	if err := checkParentheses(sql); err != nil {
		return Migration{}, NewMigrationError(version, name, "validate SQL syntax", err)
	}

	description := descriptionFromContent(sql)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	return Migration{
		Version:     version,
		Description: description,
		SQL:         sql,
		FilePath:    name,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}, nil
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx != -1 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func checkParentheses(sql string) error {
	depth := 0
	for _, r := range stripComments(sql) {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

// descriptionFromContent returns the text of a leading "-- Description:" comment.
func descriptionFromContent(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// splitStatements splits migration content on semicolons, dropping comment lines.
func splitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
