package client

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// InsertSnippet returns doc with code inserted before the 1-based line. Line
// 0 appends to the end; a line past the end is an error. The snippet always
// ends on a line break so the following text keeps its own line.
func InsertSnippet(doc, code string, line int) (string, error) {
	if line < 0 {
		return "", fmt.Errorf("line must be positive, got %d", line)
	}
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}

	if line == 0 {
		if doc != "" && !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		return doc + code, nil
	}

	offset := 0
	for current := 1; current < line; current++ {
		next := strings.IndexByte(doc[offset:], '\n')
		if next < 0 {
			return "", fmt.Errorf("line %d is past the end of the document", line)
		}
		offset += next + 1
	}
	return doc[:offset] + code + doc[offset:], nil
}

// InsertIntoFile inserts code into the file at path, creating it when it
// does not exist yet.
func InsertIntoFile(path, code string, line int) error {
	mode := os.FileMode(0o644)
	doc, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	default:
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	}

	updated, err := InsertSnippet(string(doc), code, line)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
