package replay

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

const none = "None"

var metadataColumns = []string{
	"Project",
	"Author",
	"Author Acc Type",
	"Author Email",
	"Commiter",
	"Commiter Acc Type",
	"Commiter Email",
	"Commit",
	"Commit Parent",
	"Commit Date",
	"Commit Message",
	"Number of Files Changed by Commit",
	"Release",
	"Files Names",
	"Type Of Commit",
	"Added lines",
	"Deleted lines",
	"Token Count",
	"Issue Tracker",
	"Issue Creator",
	"Issue Creator Acc type",
	"Issue Creator Association",
	"Issue Closer",
	"Issue Closer Acc Type",
	"Issue Created At",
	"Issue Closed At",
	"Issue State",
	"Issue Labels",
	"Issue Reviewers",
	"Issue Reviewers Acc Type",
	"Issue Body",
	"Path Src Code Current",
	"Path Src Code Before",
	"Path Src Code After",
	"DMM_Unit",
	"DMM_Complexity",
	"DMM_Interfacing",
	"Diff",
}

// Columns returns the dataset header for the given detector families.
func Columns(families []string) []string {
	out := make([]string, 0, len(metadataColumns)+len(families)+2)
	out = append(out, metadataColumns...)
	out = append(out, families...)
	return append(out, "Critical Branch", "Findings")
}

// DatasetPath is <output>/database/gash_<project>.csv.
func DatasetPath(outputFolder, project string) string {
	return filepath.Join(outputFolder, "database", fmt.Sprintf("gash_%s.csv", project))
}

// CSVSink writes records as rows of a comma separated dataset.
type CSVSink struct {
	w        *csv.Writer
	families []string
	closer   io.Closer
}

// NewCSVSink writes the header to w and returns a sink for the given detector families.
func NewCSVSink(w io.Writer, families []string) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w), families: families}
	if err := s.w.Write(Columns(families)); err != nil {
		return nil, fmt.Errorf("write dataset header: %w", err)
	}
	return s, nil
}

// CreateCSVSink creates the dataset file at path, replacing an existing one.
func CreateCSVSink(path string, families []string) (*CSVSink, error) {
	if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed creating dataset %q: %w", path, err)
	}
	s, err := NewCSVSink(f, families)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Write appends one row.
func (s *CSVSink) Write(r Record) error {
	if err := s.w.Write(s.row(r)); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending rows and closes the underlying file, if any.
func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *CSVSink) row(r Record) []string {
	c := r.Commit
	mod := r.Modification
	issue := r.Issue

	parent := none
	if len(c.Parents) > 0 {
		parent = c.Parents[len(c.Parents)-1]
	}
	date := ""
	if !c.Committer.When.IsZero() {
		date = c.Committer.When.Format(time.RFC3339)
	}

	row := []string{
		r.Project,
		c.Author.Name,
		r.CommitInfo.AuthorType,
		c.Author.Email,
		c.Committer.Name,
		r.CommitInfo.CommitterType,
		c.Committer.Email,
		c.Hash,
		parent,
		date,
		c.Message,
		strconv.Itoa(c.FilesChanged),
		issue.Milestone,
		mod.FileName(),
		string(mod.Type),
		strconv.Itoa(mod.AddedLines),
		strconv.Itoa(mod.DeletedLines),
		strconv.Itoa(TokenCount(mod.After)),
		strings.Join(r.IssueNumbers, ","),
		issue.Creator,
		issue.CreatorType,
		issue.CreatorAssociation,
		issue.Closer,
		issue.CloserType,
		issue.CreatedAt,
		issue.ClosedAt,
		issue.State,
		strings.Join(issue.Labels, ","),
		strings.Join(issue.Assignees, ","),
		strings.Join(issue.AssigneeTypes, ","),
		issue.Body,
		r.Paths.Current,
		r.Paths.Before,
		r.Paths.After,
		none,
		none,
		none,
		mod.Diff,
	}

	for _, family := range s.families {
		row = append(row, familyCell(r, family))
	}

	branch := none
	if r.CriticalBranch != "" {
		branch = r.CriticalBranch
	}
	return append(row, branch, strings.Join(r.FindingIDs(), ","))
}

// familyCell is True/False for an analyzed revision, Error when the detector failed and
// empty when detectors did not run.
func familyCell(r Record, family string) string {
	if !r.Analyzed {
		return ""
	}
	for _, g := range r.Groups {
		if g.Detector != family {
			continue
		}
		if g.Error != "" {
			return "Error"
		}
		if len(g.Findings) > 0 {
			return "True"
		}
		return "False"
	}
	return ""
}

// TokenCount is the number of whitespace separated tokens of text.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

var _ Sink = (*CSVSink)(nil)

