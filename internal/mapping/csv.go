package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Desired-state CSV column names. Matching is case-insensitive and
// order-independent; the group column accepts either the display-name
// header (local directory deployments) or the object-ID header
// (identity-provider deployments).
const (
	colDriveName   = "drivename"
	colDriveLetter = "driveletter"
	colDomainName  = "domainname"
	colDrivePath   = "drivepath"
	colGroupName   = "groupname"
	colGroupID     = "groupid"
)

// ParseCSV reads a desired-state table and returns the mappings in row
// order. Any malformed row makes the whole parse fail with per-row errors:
// a desired-state file that does not fully parse is a fatal precondition,
// not a partial input, because acting on half a list could unmount drives
// the missing half still authorizes.
func ParseCSV(r io.Reader) ([]DriveMapping, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("mapping: reading header row: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var (
		mappings []DriveMapping
		rowErrs  []error
	)

	for row := 2; ; row++ {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			rowErrs = append(rowErrs, fmt.Errorf("mapping: row %d: %w", row, readErr))
			continue
		}

		m := DriveMapping{
			Name:     strings.TrimSpace(record[cols.name]),
			Letter:   NormalizeLetter(record[cols.letter]),
			Domain:   strings.TrimSpace(record[cols.domain]),
			Path:     strings.TrimSpace(record[cols.path]),
			GroupKey: strings.TrimSpace(record[cols.group]),
		}

		if vErr := m.Validate(); vErr != nil {
			rowErrs = append(rowErrs, fmt.Errorf("mapping: row %d (%s): %w", row, m.Name, vErr))
			continue
		}

		mappings = append(mappings, m)
	}

	if err := errors.Join(rowErrs...); err != nil {
		return nil, err
	}

	if err := ValidateList(mappings); err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}

	return mappings, nil
}

// columnIndexes holds the resolved position of each required column.
type columnIndexes struct {
	name, letter, domain, path, group int
}

// resolveColumns maps the header row to column positions. All five columns
// are required; the group column may be either GroupName or GroupID.
func resolveColumns(header []string) (columnIndexes, error) {
	idx := columnIndexes{name: -1, letter: -1, domain: -1, path: -1, group: -1}

	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case colDriveName:
			idx.name = i
		case colDriveLetter:
			idx.letter = i
		case colDomainName:
			idx.domain = i
		case colDrivePath:
			idx.path = i
		case colGroupName, colGroupID:
			idx.group = i
		}
	}

	var missing []string

	for _, c := range []struct {
		name string
		pos  int
	}{
		{"DriveName", idx.name},
		{"DriveLetter", idx.letter},
		{"DomainName", idx.domain},
		{"DrivePath", idx.path},
		{"GroupName/GroupID", idx.group},
	} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}

	if len(missing) > 0 {
		return idx, fmt.Errorf("mapping: header missing column(s): %s", strings.Join(missing, ", "))
	}

	return idx, nil
}
