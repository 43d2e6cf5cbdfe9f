package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const desiredStateCSV = `DriveName,DriveLetter,DomainName,DrivePath,GroupName
Finance,F,contoso,/Shared/Finance,FinanceUsers
HR,G:,contoso,/Shared/HR,HRUsers
`

func TestParseCSV(t *testing.T) {
	mappings, err := ParseCSV(strings.NewReader(desiredStateCSV))
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	assert.Equal(t, DriveMapping{
		Name:     "Finance",
		Letter:   "F",
		Domain:   "contoso",
		Path:     "/Shared/Finance",
		GroupKey: "FinanceUsers",
	}, mappings[0])

	// Trailing colon on the letter is normalized away.
	assert.Equal(t, "G", mappings[1].Letter)
	assert.Equal(t, "HRUsers", mappings[1].GroupKey)
}

func TestParseCSVHeaderIsCaseAndOrderInsensitive(t *testing.T) {
	in := `grouppath,drivepath,GROUPNAME,driveletter,DomainName,DriveName
ignored,/Shared/Finance,FinanceUsers,F,contoso,Finance
`

	mappings, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "Finance", mappings[0].Name)
	assert.Equal(t, "FinanceUsers", mappings[0].GroupKey)
}

func TestParseCSVAcceptsGroupIDHeader(t *testing.T) {
	in := `DriveName,DriveLetter,DomainName,DrivePath,GroupID
Finance,F,contoso,/Shared/Finance,11111111-2222-3333-4444-555555555555
`

	mappings, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", mappings[0].GroupKey)
}

func TestParseCSVMissingColumns(t *testing.T) {
	in := `DriveName,DriveLetter
Finance,F
`

	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header missing column(s)")
	assert.Contains(t, err.Error(), "DrivePath")
	assert.Contains(t, err.Error(), "GroupName/GroupID")
}

func TestParseCSVBadRowFailsWholeParse(t *testing.T) {
	in := `DriveName,DriveLetter,DomainName,DrivePath,GroupName
Finance,F,contoso,/Shared/Finance,FinanceUsers
HR,nope,contoso,/Shared/HR,HRUsers
Legal,L,contoso,,LegalUsers
`

	// One invalid row poisons the whole list: a partial desired state is
	// never acted on.
	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3 (HR)")
	assert.Contains(t, err.Error(), "row 4 (Legal)")
	assert.Contains(t, err.Error(), "drive path is empty")
}

func TestParseCSVDuplicateLetters(t *testing.T) {
	in := `DriveName,DriveLetter,DomainName,DrivePath,GroupName
Finance,F,contoso,/Shared/Finance,FinanceUsers
Fin2,F,contoso,/Shared/Fin2,Fin2Users
`

	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claimed by both")
}

func TestParseCSVEmptyBody(t *testing.T) {
	in := "DriveName,DriveLetter,DomainName,DrivePath,GroupName\n"

	mappings, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading header row")
}
