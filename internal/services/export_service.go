package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"census-backend/internal/models"
)

// ErrInvalidPassword is returned when the export password does not match
var ErrInvalidPassword = errors.New("invalid export password")

// ageGroupOrder fixes the bucket order in the summary output
var ageGroupOrder = []string{"0-18", "19-35", "36-50", "51-65", "65+", "Unknown"}

// ExportStore is the bulk-read surface the export walks
type ExportStore interface {
	ListFamilyHeads(ctx context.Context) ([]models.FamilyHeadRow, error)
	ListSpouses(ctx context.Context) ([]models.SpouseRow, error)
	ListChildren(ctx context.Context) ([]models.ChildRow, error)
	ListChildSpouses(ctx context.Context) ([]models.ChildSpouseRow, error)
	ListGrandchildren(ctx context.Context) ([]models.GrandchildRow, error)
}

// FamilyStats is the computed summary included in the workbook export
type FamilyStats struct {
	TotalFamilies       int            `json:"total_families"`
	TotalFamilyHeads    int            `json:"total_family_heads"`
	TotalSpouses        int            `json:"total_spouses"`
	TotalSons           int            `json:"total_sons"`
	TotalDaughters      int            `json:"total_daughters"`
	TotalChildren       int            `json:"total_children"`
	TotalGrandchildren  int            `json:"total_grandchildren"`
	MarriedChildren     int            `json:"married_children"`
	OccupationBreakdown map[string]int `json:"occupation_breakdown"`
	AgeGroups           map[string]int `json:"age_groups"`
}

// ExportService produces the password-gated bulk exports. The password
// is a shared secret carried over from the original form, a soft
// speed-bump in front of the download, not an access-control boundary.
type ExportService struct {
	store        ExportStore
	passwordHash []byte
}

// NewExportService hashes the configured plaintext once at startup so
// per-request comparison is constant-time.
func NewExportService(store ExportStore, password string) (*ExportService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash export password: %w", err)
	}
	return &ExportService{store: store, passwordHash: hash}, nil
}

// CheckPassword verifies the shared export secret
func (s *ExportService) CheckPassword(password string) error {
	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

// exportData is one consistent read of all five tables. Any read
// failure aborts the whole export; no partial file is produced.
type exportData struct {
	heads         []models.FamilyHeadRow
	spouses       []models.SpouseRow
	children      []models.ChildRow
	childSpouses  []models.ChildSpouseRow
	grandchildren []models.GrandchildRow
}

func (s *ExportService) readAll(ctx context.Context) (*exportData, error) {
	var data exportData
	var err error

	if data.heads, err = s.store.ListFamilyHeads(ctx); err != nil {
		return nil, err
	}
	if data.spouses, err = s.store.ListSpouses(ctx); err != nil {
		return nil, err
	}
	if data.children, err = s.store.ListChildren(ctx); err != nil {
		return nil, err
	}
	if data.childSpouses, err = s.store.ListChildSpouses(ctx); err != nil {
		return nil, err
	}
	if data.grandchildren, err = s.store.ListGrandchildren(ctx); err != nil {
		return nil, err
	}
	return &data, nil
}

// ExportCSV serializes all five tables into one sectioned CSV document.
// Returns the suggested filename and the file content.
func (s *ExportService) ExportCSV(ctx context.Context, password string) (string, []byte, error) {
	if err := s.CheckPassword(password); err != nil {
		return "", nil, err
	}

	data, err := s.readAll(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("export read failed: %w", err)
	}

	var b strings.Builder

	b.WriteString("FAMILY HEADS\n")
	writeCSVHeader(&b, "ID", "First Name", "Last Name", "Date of Birth", "Age", "Native Place", "Current Place", "Contact Number", "Marital Status", "Occupation", "Created At")
	for _, h := range data.heads {
		writeCSVRow(&b, h.ID, h.FirstName, h.LastName, h.DateOfBirth, ageString(h.Age), h.NativePlace, h.CurrentPlace, h.ContactNumber, h.MaritalStatus, h.Occupation, h.CreatedAt.Format(time.RFC3339))
	}

	b.WriteString("\n\nSPOUSES\n")
	writeCSVHeader(&b, "ID", "Family Head ID", "First Name", "Last Name", "Date of Birth", "Age", "Native Place", "Contact Number", "Occupation", "Number of Sons", "Number of Daughters", "Created At")
	for _, sp := range data.spouses {
		writeCSVRow(&b, sp.ID, sp.FamilyHeadID, sp.FirstName, sp.LastName, sp.DateOfBirth, ageString(sp.Age), sp.NativePlace, sp.ContactNumber, sp.Occupation, fmt.Sprint(sp.NumberOfSons), fmt.Sprint(sp.NumberOfDaughters), sp.CreatedAt.Format(time.RFC3339))
	}

	b.WriteString("\n\nCHILDREN\n")
	writeCSVHeader(&b, "ID", "Family Head ID", "First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Current Place", "Phone Number", "Occupation", "Marital Status", "Child Type", "Child Index", "Created At")
	for _, c := range data.children {
		writeCSVRow(&b, c.ID, c.FamilyHeadID, c.FirstName, c.LastName, c.DateOfBirth, ageString(c.Age), c.ContactNumber, c.CurrentPlace, c.PhoneNumber, c.Occupation, c.MaritalStatus, c.ChildType, fmt.Sprint(c.ChildIndex), c.CreatedAt.Format(time.RFC3339))
	}

	b.WriteString("\n\nCHILD SPOUSES\n")
	writeCSVHeader(&b, "ID", "Child ID", "First Name", "Last Name", "Date of Birth", "Age", "Native Place", "Contact Number", "Occupation", "Number of Children", "Created At")
	for _, sp := range data.childSpouses {
		writeCSVRow(&b, sp.ID, sp.ChildID, sp.FirstName, sp.LastName, sp.DateOfBirth, ageString(sp.Age), sp.NativePlace, sp.ContactNumber, sp.Occupation, fmt.Sprint(sp.NumberOfChildren), sp.CreatedAt.Format(time.RFC3339))
	}

	b.WriteString("\n\nGRANDCHILDREN\n")
	writeCSVHeader(&b, "ID", "Child Spouse ID", "First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Current Place", "Phone Number", "Occupation", "Grandchild Index", "Created At")
	for _, g := range data.grandchildren {
		writeCSVRow(&b, g.ID, g.ChildSpouseID, g.FirstName, g.LastName, g.DateOfBirth, ageString(g.Age), g.ContactNumber, g.CurrentPlace, g.PhoneNumber, g.Occupation, fmt.Sprint(g.GrandchildIndex), g.CreatedAt.Format(time.RFC3339))
	}

	filename := fmt.Sprintf("family_data_%s.csv", time.Now().Format("2006-01-02"))
	return filename, []byte(b.String()), nil
}

// ExportExcel builds the multi-sheet workbook: a Summary sheet with the
// computed statistics plus one sheet per table. Sheets for empty tables
// are omitted, as the original export did.
func (s *ExportService) ExportExcel(ctx context.Context, password string) (string, []byte, error) {
	if err := s.CheckPassword(password); err != nil {
		return "", nil, err
	}

	data, err := s.readAll(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("export read failed: %w", err)
	}

	stats := ComputeFamilyStats(data.heads, data.spouses, data.children, data.childSpouses, data.grandchildren)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return "", nil, fmt.Errorf("export serialization failed: %w", err)
	}
	if err := writeSummarySheet(f, stats); err != nil {
		return "", nil, fmt.Errorf("export serialization failed: %w", err)
	}

	if len(data.heads) > 0 {
		rows := [][]interface{}{{"First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Native Place", "Current Place", "Marital Status", "Occupation", "Created At"}}
		for _, h := range data.heads {
			rows = append(rows, []interface{}{h.FirstName, h.LastName, h.DateOfBirth, ageCell(h.Age), h.ContactNumber, h.NativePlace, h.CurrentPlace, h.MaritalStatus, h.Occupation, h.CreatedAt.Format("2006-01-02")})
		}
		if err := writeSheet(f, "Family Heads", rows); err != nil {
			return "", nil, fmt.Errorf("export serialization failed: %w", err)
		}
	}

	if len(data.spouses) > 0 {
		rows := [][]interface{}{{"First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Native Place", "Occupation", "Number of Sons", "Number of Daughters", "Family Head ID", "Created At"}}
		for _, sp := range data.spouses {
			rows = append(rows, []interface{}{sp.FirstName, sp.LastName, sp.DateOfBirth, ageCell(sp.Age), sp.ContactNumber, sp.NativePlace, sp.Occupation, sp.NumberOfSons, sp.NumberOfDaughters, sp.FamilyHeadID, sp.CreatedAt.Format("2006-01-02")})
		}
		if err := writeSheet(f, "Spouses", rows); err != nil {
			return "", nil, fmt.Errorf("export serialization failed: %w", err)
		}
	}

	if len(data.children) > 0 {
		rows := [][]interface{}{{"Type", "Index", "First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Phone Number", "Current Place", "Marital Status", "Occupation", "Family Head ID", "Created At"}}
		for _, c := range data.children {
			rows = append(rows, []interface{}{c.ChildType, c.ChildIndex, c.FirstName, c.LastName, c.DateOfBirth, ageCell(c.Age), c.ContactNumber, c.PhoneNumber, c.CurrentPlace, c.MaritalStatus, c.Occupation, c.FamilyHeadID, c.CreatedAt.Format("2006-01-02")})
		}
		if err := writeSheet(f, "Children", rows); err != nil {
			return "", nil, fmt.Errorf("export serialization failed: %w", err)
		}
	}

	if len(data.childSpouses) > 0 {
		rows := [][]interface{}{{"First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Native Place", "Occupation", "Number of Children", "Child ID", "Created At"}}
		for _, sp := range data.childSpouses {
			rows = append(rows, []interface{}{sp.FirstName, sp.LastName, sp.DateOfBirth, ageCell(sp.Age), sp.ContactNumber, sp.NativePlace, sp.Occupation, sp.NumberOfChildren, sp.ChildID, sp.CreatedAt.Format("2006-01-02")})
		}
		if err := writeSheet(f, "Child Spouses", rows); err != nil {
			return "", nil, fmt.Errorf("export serialization failed: %w", err)
		}
	}

	if len(data.grandchildren) > 0 {
		rows := [][]interface{}{{"Index", "First Name", "Last Name", "Date of Birth", "Age", "Contact Number", "Phone Number", "Current Place", "Occupation", "Child Spouse ID", "Created At"}}
		for _, g := range data.grandchildren {
			rows = append(rows, []interface{}{g.GrandchildIndex, g.FirstName, g.LastName, g.DateOfBirth, ageCell(g.Age), g.ContactNumber, g.PhoneNumber, g.CurrentPlace, g.Occupation, g.ChildSpouseID, g.CreatedAt.Format("2006-01-02")})
		}
		if err := writeSheet(f, "Grandchildren", rows); err != nil {
			return "", nil, fmt.Errorf("export serialization failed: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("export serialization failed: %w", err)
	}

	filename := fmt.Sprintf("Family_Database_Complete_%s.xlsx", time.Now().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// ComputeFamilyStats derives the summary counts: totals per table, sons
// vs daughters, married children, occupation breakdown and age buckets
// across every person in the database.
func ComputeFamilyStats(heads []models.FamilyHeadRow, spouses []models.SpouseRow, children []models.ChildRow, childSpouses []models.ChildSpouseRow, grandchildren []models.GrandchildRow) FamilyStats {
	stats := FamilyStats{
		TotalFamilies:       len(heads),
		TotalFamilyHeads:    len(heads),
		TotalSpouses:        len(spouses),
		TotalChildren:       len(children),
		TotalGrandchildren:  len(grandchildren),
		OccupationBreakdown: make(map[string]int),
		AgeGroups:           make(map[string]int),
	}
	for _, g := range ageGroupOrder {
		stats.AgeGroups[g] = 0
	}

	for _, c := range children {
		switch c.ChildType {
		case models.ChildTypeSon:
			stats.TotalSons++
		case models.ChildTypeDaughter:
			stats.TotalDaughters++
		}
		if c.MaritalStatus == models.MaritalMarried {
			stats.MarriedChildren++
		}
	}

	type person struct {
		occupation string
		age        *int
	}
	var people []person
	for _, h := range heads {
		people = append(people, person{h.Occupation, h.Age})
	}
	for _, sp := range spouses {
		people = append(people, person{sp.Occupation, sp.Age})
	}
	for _, c := range children {
		people = append(people, person{c.Occupation, c.Age})
	}
	for _, sp := range childSpouses {
		people = append(people, person{sp.Occupation, sp.Age})
	}
	for _, g := range grandchildren {
		people = append(people, person{g.Occupation, g.Age})
	}

	for _, p := range people {
		if p.occupation != "" {
			stats.OccupationBreakdown[p.occupation]++
		}
		stats.AgeGroups[ageGroup(p.age)]++
	}

	return stats
}

func ageGroup(age *int) string {
	switch {
	case age == nil:
		return "Unknown"
	case *age <= 18:
		return "0-18"
	case *age <= 35:
		return "19-35"
	case *age <= 50:
		return "36-50"
	case *age <= 65:
		return "51-65"
	default:
		return "65+"
	}
}

func writeSummarySheet(f *excelize.File, stats FamilyStats) error {
	rows := [][]interface{}{
		{"Family Database Summary", ""},
		{"Export Date", time.Now().Format("2006-01-02")},
		{"", ""},
		{"OVERALL COUNTS", ""},
		{"Total Families", stats.TotalFamilies},
		{"Total Family Heads", stats.TotalFamilyHeads},
		{"Total Spouses", stats.TotalSpouses},
		{"Total Children", stats.TotalChildren},
		{"- Sons", stats.TotalSons},
		{"- Daughters", stats.TotalDaughters},
		{"Total Married Children", stats.MarriedChildren},
		{"Total Grandchildren", stats.TotalGrandchildren},
		{"", ""},
		{"OCCUPATION BREAKDOWN", ""},
	}

	for _, occ := range models.Occupations {
		if count, ok := stats.OccupationBreakdown[occ]; ok && count > 0 {
			rows = append(rows, []interface{}{titleCase(occ), count})
		}
	}

	rows = append(rows, []interface{}{"", ""}, []interface{}{"AGE GROUP BREAKDOWN", ""})
	for _, group := range ageGroupOrder {
		rows = append(rows, []interface{}{group, stats.AgeGroups[group]})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("Summary", cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVHeader appends one unquoted column-name row; only data rows
// are quoted
func writeCSVHeader(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, ","))
	b.WriteByte('\n')
}

// writeCSVRow appends one data row with every field quoted
func writeCSVRow(b *strings.Builder, fields ...string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func ageString(age *int) string {
	if age == nil {
		return ""
	}
	return fmt.Sprint(*age)
}

func ageCell(age *int) interface{} {
	if age == nil {
		return ""
	}
	return *age
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
