package mining

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gash-io/gash/pkg/shared/files"
)

// DatasetColumns is the header of the repository dataset.
var DatasetColumns = []string{
	"Owner", "Repo", "Description", "URL", "Language", "Stars", "Open Issues Count",
	"Created At", "Updated At", "Size", "Has Downloads", "YML Count", "YML Files",
}

// URLColumn is the index of the URL column in the repository dataset.
const URLColumn = 3

// DatasetPath is <output>/datasets/repos_dataset.csv.
func DatasetPath(outputFolder string) string {
	return filepath.Join(outputFolder, "datasets", "repos_dataset.csv")
}

// WriteDataset writes candidates as a comma separated dataset.
func WriteDataset(w io.Writer, candidates []Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DatasetColumns); err != nil {
		return err
	}
	for _, c := range candidates {
		language := c.Language
		if language == "" {
			language = "Unknown"
		}
		if err := cw.Write([]string{
			c.Owner,
			c.FullName,
			c.Description,
			c.URL,
			language,
			strconv.Itoa(c.Stars),
			strconv.Itoa(c.OpenIssues),
			formatDate(c.CreatedAt),
			formatDate(c.UpdatedAt),
			strconv.Itoa(c.Size),
			strconv.FormatBool(c.HasDownloads),
			strconv.Itoa(len(c.WorkflowFiles)),
			strings.Join(c.WorkflowFiles, "; "),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveDataset writes candidates to path, creating parent folders.
func SaveDataset(path string, candidates []Candidate) error {
	if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed creating dataset %q: %w", path, err)
	}
	defer f.Close()
	if err := WriteDataset(f, candidates); err != nil {
		return fmt.Errorf("failed writing dataset %q: %w", path, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadURLs reads repository URLs from column of a delimited file. The header row is
// skipped, and so are empty cells.
func ReadURLs(r io.Reader, column int, delimiter rune) ([]string, error) {
	if column < 0 {
		return nil, fmt.Errorf("column must not be negative, got %d", column)
	}
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var urls []string
	for i, row := range rows[1:] {
		if column >= len(row) {
			return nil, fmt.Errorf("row %d has %d columns, column %d requested", i+2, len(row), column)
		}
		if u := strings.TrimSpace(row[column]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// ReadURLsFile reads repository URLs from the file at path.
func ReadURLsFile(path string, column int, delimiter rune) ([]string, error) {
	if err := files.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadURLs(f, column, delimiter)
}
