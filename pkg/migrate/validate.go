package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// Validate checks every .sql file at the root of source: timestamped names,
// unique versions, an Up section before Down and balanced statement blocks.
func Validate(source fs.FS) error {
	if source == nil {
		return fmt.Errorf("migration source is required")
	}
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[int64]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(source, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := validateAnnotations(body); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func validateAnnotations(body []byte) error {
	var (
		upLine, downLine int
		open             bool
		line             int
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line++
		switch strings.TrimSpace(scanner.Text()) {
		case annotationUp:
			upLine = line
		case annotationDown:
			if open {
				return fmt.Errorf("line %d: Down section starts inside an open statement block", line)
			}
			downLine = line
		case annotationBegin:
			if open {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			open = true
		case annotationEnd:
			if !open {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case upLine == 0:
		return fmt.Errorf("missing %q", annotationUp)
	case downLine == 0:
		return fmt.Errorf("missing %q", annotationDown)
	case downLine < upLine:
		return fmt.Errorf("%q must come before %q", annotationUp, annotationDown)
	case open:
		return fmt.Errorf("unterminated statement block")
	}
	return nil
}
