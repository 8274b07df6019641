package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"census-backend/internal/models"
)

type fakeExportStore struct {
	data    exportData
	readErr error
}

func (f *fakeExportStore) ListFamilyHeads(context.Context) ([]models.FamilyHeadRow, error) {
	return f.data.heads, f.readErr
}
func (f *fakeExportStore) ListSpouses(context.Context) ([]models.SpouseRow, error) {
	return f.data.spouses, f.readErr
}
func (f *fakeExportStore) ListChildren(context.Context) ([]models.ChildRow, error) {
	return f.data.children, f.readErr
}
func (f *fakeExportStore) ListChildSpouses(context.Context) ([]models.ChildSpouseRow, error) {
	return f.data.childSpouses, f.readErr
}
func (f *fakeExportStore) ListGrandchildren(context.Context) ([]models.GrandchildRow, error) {
	return f.data.grandchildren, f.readErr
}

func intPtr(n int) *int { return &n }

func sampleExportStore() *fakeExportStore {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &fakeExportStore{data: exportData{
		heads: []models.FamilyHeadRow{{
			ID: "head-1", FirstName: "RAM", LastName: "SHARMA",
			DateOfBirth: "1980-01-01", Age: intPtr(44),
			MaritalStatus: "married", Occupation: "business", CreatedAt: created,
		}},
		spouses: []models.SpouseRow{{
			ID: "spouse-1", FamilyHeadID: "head-1", FirstName: "SITA",
			Age: intPtr(40), Occupation: "housewife", NumberOfSons: 1, CreatedAt: created,
		}},
		children: []models.ChildRow{{
			ID: "child-1", FamilyHeadID: "head-1", FirstName: "LAV",
			Age: intPtr(20), MaritalStatus: "married", Occupation: "student",
			ChildType: models.ChildTypeSon, ChildIndex: 0, CreatedAt: created,
		}},
	}}
}

func newTestExportService(t *testing.T, store ExportStore) *ExportService {
	t.Helper()
	svc, err := NewExportService(store, "3575")
	require.NoError(t, err)
	return svc
}

func TestExportPasswordGate(t *testing.T) {
	svc := newTestExportService(t, sampleExportStore())

	assert.NoError(t, svc.CheckPassword("3575"))
	assert.ErrorIs(t, svc.CheckPassword("1234"), ErrInvalidPassword)
	assert.ErrorIs(t, svc.CheckPassword(""), ErrInvalidPassword)

	_, _, err := svc.ExportCSV(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	_, _, err = svc.ExportExcel(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestExportCSVSectionsAndFilename(t *testing.T) {
	svc := newTestExportService(t, sampleExportStore())

	filename, data, err := svc.ExportCSV(context.Background(), "3575")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "family_data_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	content := string(data)
	for _, section := range []string{"FAMILY HEADS", "SPOUSES", "CHILDREN", "CHILD SPOUSES", "GRANDCHILDREN"} {
		assert.Contains(t, content, section+"\n")
	}
	// Header rows are plain column names, data rows are fully quoted
	assert.Contains(t, content, "ID,First Name,Last Name,Date of Birth,Age")
	assert.NotContains(t, content, `"ID","First Name"`)
	assert.Contains(t, content, `"head-1","RAM","SHARMA","1980-01-01","44"`)
	assert.Contains(t, content, `"spouse-1","head-1","SITA"`)
}

func TestExportCSVReadFailureProducesNoFile(t *testing.T) {
	store := sampleExportStore()
	store.readErr = errors.New("connection refused")
	svc := newTestExportService(t, store)

	_, data, err := svc.ExportCSV(context.Background(), "3575")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export read failed")
	assert.Nil(t, data)
}

func TestExportExcelWorkbook(t *testing.T) {
	svc := newTestExportService(t, sampleExportStore())

	filename, data, err := svc.ExportExcel(context.Background(), "3575")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "Family_Database_Complete_"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "Family Heads")
	assert.Contains(t, sheets, "Spouses")
	assert.Contains(t, sheets, "Children")
	// Empty tables get no sheet
	assert.NotContains(t, sheets, "Child Spouses")
	assert.NotContains(t, sheets, "Grandchildren")

	totalFamilies, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "1", totalFamilies)

	headName, err := f.GetCellValue("Family Heads", "A2")
	require.NoError(t, err)
	assert.Equal(t, "RAM", headName)
}

func TestComputeFamilyStats(t *testing.T) {
	heads := []models.FamilyHeadRow{
		{Age: intPtr(44), Occupation: "business", MaritalStatus: "married"},
		{Age: intPtr(70), Occupation: "retired"},
	}
	spouses := []models.SpouseRow{{Age: intPtr(40), Occupation: "housewife"}}
	children := []models.ChildRow{
		{Age: intPtr(18), Occupation: "student", ChildType: models.ChildTypeSon, MaritalStatus: "married"},
		{Age: intPtr(19), Occupation: "student", ChildType: models.ChildTypeDaughter},
	}
	childSpouses := []models.ChildSpouseRow{{Age: nil, Occupation: "salaried"}}
	grandchildren := []models.GrandchildRow{{Age: intPtr(2)}}

	stats := ComputeFamilyStats(heads, spouses, children, childSpouses, grandchildren)

	assert.Equal(t, 2, stats.TotalFamilies)
	assert.Equal(t, 1, stats.TotalSons)
	assert.Equal(t, 1, stats.TotalDaughters)
	assert.Equal(t, 1, stats.MarriedChildren)
	assert.Equal(t, 1, stats.TotalGrandchildren)

	// Bucket boundaries: 18 is 0-18, 19 is 19-35, 70 is 65+, nil is Unknown
	assert.Equal(t, 2, stats.AgeGroups["0-18"])
	assert.Equal(t, 1, stats.AgeGroups["19-35"])
	assert.Equal(t, 2, stats.AgeGroups["36-50"])
	assert.Equal(t, 0, stats.AgeGroups["51-65"])
	assert.Equal(t, 1, stats.AgeGroups["65+"])
	assert.Equal(t, 1, stats.AgeGroups["Unknown"])

	assert.Equal(t, 2, stats.OccupationBreakdown["student"])
	assert.Equal(t, 1, stats.OccupationBreakdown["business"])
	_, hasEmpty := stats.OccupationBreakdown[""]
	assert.False(t, hasEmpty, "blank occupations are not counted")
}
