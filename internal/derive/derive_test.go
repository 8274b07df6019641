package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refDate(t *testing.T, iso string) time.Time {
	t.Helper()
	ref, err := time.Parse("2006-01-02", iso)
	require.NoError(t, err)
	return ref
}

func TestComputeAgeAtBirthdayBoundary(t *testing.T) {
	dob := "2000-06-15"

	assert.Equal(t, 23, ComputeAgeAt(dob, refDate(t, "2024-06-14")), "day before birthday")
	assert.Equal(t, 24, ComputeAgeAt(dob, refDate(t, "2024-06-15")), "on birthday")
	assert.Equal(t, 24, ComputeAgeAt(dob, refDate(t, "2024-06-16")), "day after birthday")
}

func TestComputeAgeAtEarlierMonth(t *testing.T) {
	// Birthday month not yet reached
	assert.Equal(t, 43, ComputeAgeAt("1980-12-01", refDate(t, "2024-06-15")))
	// Birthday month already passed
	assert.Equal(t, 44, ComputeAgeAt("1980-01-01", refDate(t, "2024-06-15")))
}

func TestComputeAgeAtSlashFormat(t *testing.T) {
	// dd/mm/yyyy input must agree with its ISO equivalent
	ref := refDate(t, "2024-06-15")
	assert.Equal(t, ComputeAgeAt("2000-06-15", ref), ComputeAgeAt("15/06/2000", ref))
}

func TestComputeAgeAtFallsBackToZero(t *testing.T) {
	ref := refDate(t, "2024-06-15")

	assert.Equal(t, 0, ComputeAgeAt("", ref))
	assert.Equal(t, 0, ComputeAgeAt("not-a-date", ref))
	// A future date clamps to zero rather than going negative
	assert.Equal(t, 0, ComputeAgeAt("2030-01-01", ref))
}

func TestComputeAgeAtIsPure(t *testing.T) {
	ref := refDate(t, "2024-06-15")
	first := ComputeAgeAt("1990-03-20", ref)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComputeAgeAt("1990-03-20", ref))
	}
	assert.GreaterOrEqual(t, first, 0)
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("15/06/2000")
	require.NoError(t, err)
	assert.Equal(t, "2000-06-15", got)

	got, err = NormalizeDate("2000-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2000-06-15", got)

	got, err = NormalizeDate("")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = NormalizeDate("June 15th")
	assert.Error(t, err)
}

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("12345"))
	assert.True(t, IsDigits("0"))
	assert.False(t, IsDigits("123-45"))
	assert.False(t, IsDigits("+911234567890"))
	assert.False(t, IsDigits("12 345"))
	assert.False(t, IsDigits(""))
}

func TestUppercaseName(t *testing.T) {
	assert.Equal(t, "RAM", UppercaseName("ram"))
	assert.Equal(t, "RAM KUMAR", UppercaseName("Ram Kumar"))
	assert.Equal(t, "", UppercaseName(""))
}
