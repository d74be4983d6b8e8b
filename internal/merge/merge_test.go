package merge

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posix4e/ContactDedup/internal/types"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine() *Engine {
	return NewEngineWithClock(testClock)
}

func fullRecord() *types.ContactRecord {
	rec := types.NewContactRecord(types.SourceDevice)
	rec.FirstName = "John"
	rec.LastName = "Smith"
	rec.Company = "Acme Corp"
	rec.JobTitle = "Engineer"
	rec.AddEmail("john@acme.example")
	rec.AddPhone("+1-555-123-4567")
	rec.AddAddress("1 Main St")
	rec.AddURL("https://example.com/john")
	rec.AddSocialProfile(types.ServiceAccount{Service: "linkedin", Username: "jsmith"})
	rec.AddMessagingAddress(types.ServiceAccount{Service: "signal", Username: "+15551234567"})
	rec.AddRelationship(types.Relationship{Name: "Jane Smith", Label: "spouse"})
	rec.Birthday = &types.PartialDate{Year: 1980, Month: 3, Day: 14}
	rec.AddDate(types.LabeledDate{Label: "anniversary", Date: types.PartialDate{Month: 6, Day: 2}})
	rec.Notes = "met at conference"
	rec.SetExternalID(types.SourceDevice, "device-42")
	return rec
}

func TestMergePrimaryNotInGroupFailsLoudly(t *testing.T) {
	e := newTestEngine()
	group := []*types.ContactRecord{fullRecord(), fullRecord()}

	_, _, err := e.Merge(group, "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrimaryNotInGroup)

	_, _, err = e.Merge(nil, "x")
	assert.Error(t, err)
}

func TestMergeAdditiveFieldsUnionWithoutLoss(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := types.NewContactRecord(types.SourceGraph)
	secondary.FirstName = "John"
	secondary.LastName = "Smith"
	secondary.AddEmail("JOHN@ACME.EXAMPLE") // duplicate under normalization
	secondary.AddEmail("jsmith@home.example")
	secondary.AddPhone("123-4567") // distinct digit string, kept
	secondary.AddAddress("1 Main St")
	secondary.AddAddress("2 Oak Ave")
	secondary.AddURL("HTTPS://EXAMPLE.COM/JOHN")
	secondary.AddSocialProfile(types.ServiceAccount{Service: "LinkedIn", Username: "JSmith"})
	secondary.AddSocialProfile(types.ServiceAccount{Service: "github", Username: "jsmith"})

	merged, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	assert.Equal(t, []string{"john@acme.example", "jsmith@home.example"}, merged.Emails)
	assert.Equal(t, []string{"+1-555-123-4567", "123-4567"}, merged.Phones)
	assert.Equal(t, []string{"1 Main St", "2 Oak Ave"}, merged.Addresses)
	assert.Equal(t, []string{"https://example.com/john"}, merged.URLs)
	require.Len(t, merged.SocialProfiles, 2)
	assert.Equal(t, "github", merged.SocialProfiles[1].Service)
}

func TestMergeScalarConflictsAreLoggedNotDropped(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := fullRecord()
	secondary.ID = "secondary-id"
	secondary.Company = "Globex"
	secondary.JobTitle = "Engineer" // equal, no conflict

	merged, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "company", conflicts[0].Field)
	assert.Equal(t, "Globex", conflicts[0].LosingValue)
	assert.Equal(t, "secondary-id", conflicts[0].SourceRecordID)
	assert.NoError(t, conflicts[0].Validate())

	// Field of record keeps the primary's value.
	assert.Equal(t, "Acme Corp", merged.Company)

	// The history block lands in notes with the losing value verbatim.
	assert.Contains(t, merged.Notes, "--- merged 2025-06-01T12:00:00Z ---")
	assert.Contains(t, merged.Notes, `"Globex"`)
}

func TestMergeEmptyScalarsAdoptSecondaryValues(t *testing.T) {
	e := newTestEngine()
	primary := types.NewContactRecord(types.SourceDevice)
	primary.FirstName = "John"
	primary.LastName = "Smith"
	secondary := fullRecord()

	merged, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	assert.Equal(t, "Acme Corp", merged.Company)
	assert.Equal(t, "Engineer", merged.JobTitle)
	assert.Equal(t, "met at conference", merged.Notes)
	require.NotNil(t, merged.Birthday)
	assert.Equal(t, 1980, merged.Birthday.Year)
}

func TestMergeNameMismatchFoldsAlternateNames(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := types.NewContactRecord(types.SourceCSV)
	secondary.FirstName = "Johnny"
	secondary.LastName = "Smith"
	secondary.Nickname = "J-Dog"

	merged, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	// first_name conflict logged, name of record unchanged.
	require.NotEmpty(t, conflicts)
	assert.Equal(t, "John", merged.FirstName)

	// The alternate identity and the nickname both survive on the nickname
	// field. The primary had no nickname, so the secondary's was adopted
	// first and the alternates appended after it.
	assert.Equal(t, "J-Dog, Johnny Smith", merged.Nickname)
}

func TestMergeNicknameConflictFoldsIntoAlternates(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	primary.Nickname = "Johnny"
	secondary := types.NewContactRecord(types.SourceGraph)
	secondary.FirstName = "John"
	secondary.LastName = "Smith"
	secondary.Nickname = "Jay"

	merged, _, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, "Johnny, Jay", merged.Nickname)
}

func TestMergeNotesConflictPreservedVerbatim(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := types.NewContactRecord(types.SourceGraph)
	secondary.FirstName = "John"
	secondary.LastName = "Smith"
	secondary.Notes = "owes me twenty dollars\nsecond line"

	merged, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "notes", conflicts[0].Field)
	assert.Equal(t, "owes me twenty dollars\nsecond line", conflicts[0].LosingValue)
	assert.Equal(t, "met at conference", strings.SplitN(merged.Notes, "\n", 2)[0])
	assert.Contains(t, merged.Notes, "owes me twenty dollars")
}

func TestMergePhotoAndExternalIDsAdopted(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := types.NewContactRecord(types.SourceGraph)
	secondary.FirstName = "John"
	secondary.LastName = "Smith"
	secondary.Photo = []byte{0xFF, 0xD8}
	secondary.SetExternalID(types.SourceGraph, "graph-99")
	secondary.SetExternalID(types.SourceDevice, "device-other")

	merged, _, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	assert.Equal(t, []byte{0xFF, 0xD8}, merged.Photo)

	// Empty slots fill from secondaries; occupied slots are kept.
	graphID, _ := merged.ExternalID(types.SourceGraph)
	assert.Equal(t, "graph-99", graphID)
	deviceID, _ := merged.ExternalID(types.SourceDevice)
	assert.Equal(t, "device-42", deviceID)
}

func TestMergeBirthdayConflict(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := fullRecord()
	secondary.Birthday = &types.PartialDate{Year: 1981, Month: 3, Day: 14}

	_, conflicts, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "birthday", conflicts[0].Field)
	assert.Equal(t, "1981-03-14", conflicts[0].LosingValue)
}

func TestMergeIdempotence(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := fullRecord()
	secondary.ID = "secondary-id"
	secondary.Company = "Globex"
	secondary.AddEmail("alt@home.example")

	merged, _, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	// Re-merging the merged record with itself as the sole secondary must
	// be a no-op: no new conflicts, identical resulting record.
	again, conflicts, err := e.Merge([]*types.ContactRecord{merged, merged.Clone()}, merged.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, merged, again)
}

func TestMergeLosslessness(t *testing.T) {
	e := newTestEngine()
	group := []*types.ContactRecord{fullRecord(), fullRecord(), fullRecord()}
	group[1].ID = "b"
	group[2].ID = "c"
	group[1].AddEmail("b@example.com")
	group[1].Company = "Globex"
	group[2].AddPhone("999-888-7777")
	group[2].JobTitle = "Manager"
	group[2].Notes = "different note"

	merged, conflicts, err := e.Merge(group, group[0].ID)
	require.NoError(t, err)

	// Every additive value from every member is present in the merged
	// record under the field's normalization.
	for _, rec := range group {
		for _, email := range rec.Emails {
			assert.False(t, merged.AddEmail(email), "email %q missing from merged record", email)
		}
		for _, phone := range rec.Phones {
			assert.False(t, merged.AddPhone(phone), "phone %q missing from merged record", phone)
		}
		for _, addr := range rec.Addresses {
			assert.False(t, merged.AddAddress(addr), "address %q missing from merged record", addr)
		}
	}

	// Every differing scalar shows up in the conflict log.
	fields := make(map[string]bool)
	for _, c := range conflicts {
		fields[c.Field] = true
	}
	assert.True(t, fields["company"])
	assert.True(t, fields["job_title"])
	assert.True(t, fields["notes"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	e := newTestEngine()
	primary := fullRecord()
	secondary := fullRecord()
	secondary.ID = "secondary-id"
	secondary.Company = "Globex"
	primarySnapshot := primary.Clone()
	secondarySnapshot := secondary.Clone()

	_, _, err := e.Merge([]*types.ContactRecord{primary, secondary}, primary.ID)
	require.NoError(t, err)

	assert.Equal(t, primarySnapshot, primary)
	assert.Equal(t, secondarySnapshot, secondary)
}

func TestMergeDeterministicGivenGroupOrder(t *testing.T) {
	e := newTestEngine()
	group := []*types.ContactRecord{fullRecord(), fullRecord(), fullRecord()}
	group[1].ID = "b"
	group[2].ID = "c"
	group[1].Company = "Globex"
	group[2].Company = "Initech"

	first, conflictsA, err := e.Merge(group, group[0].ID)
	require.NoError(t, err)
	second, conflictsB, err := e.Merge(group, group[0].ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, conflictsA, conflictsB)
}

func TestCoordinatorSerializesOverlappingMerges(t *testing.T) {
	coord := NewCoordinator(newTestEngine())

	shared := fullRecord()
	groupA := []*types.ContactRecord{shared, fullRecord()}
	groupA[1].ID = "a2"
	groupB := []*types.ContactRecord{shared.Clone(), fullRecord()}
	groupB[1].ID = "b2"

	const iterations = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*iterations)
	for i := 0; i < iterations; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := coord.Merge(groupA, shared.ID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, _, err := coord.Merge(groupB, shared.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCoordinatorAllowsDisjointConcurrency(t *testing.T) {
	coord := NewCoordinator(newTestEngine())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := fullRecord()
			b := fullRecord()
			b.ID = fmt.Sprintf("b-%d", i)
			_, _, err := coord.Merge([]*types.ContactRecord{a, b}, a.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
