package models

import "time"

// Flat row types matching the five census tables. The persistence mapper
// produces these from a FamilyTree; the export reads them back.

// FamilyHeadRow is one row of family_heads
type FamilyHeadRow struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	DateOfBirth   string    `json:"date_of_birth"`
	Age           *int      `json:"age"`
	NativePlace   string    `json:"native_place"`
	CurrentPlace  string    `json:"current_place"`
	ContactNumber string    `json:"contact_number"`
	MaritalStatus string    `json:"marital_status"`
	Occupation    string    `json:"occupation"`
	CreatedAt     time.Time `json:"created_at"`
}

// SpouseRow is one row of spouses, referencing its family head
type SpouseRow struct {
	ID                string    `json:"id"`
	FamilyHeadID      string    `json:"family_head_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	DateOfBirth       string    `json:"date_of_birth"`
	Age               *int      `json:"age"`
	NativePlace       string    `json:"native_place"`
	ContactNumber     string    `json:"contact_number"`
	Occupation        string    `json:"occupation"`
	NumberOfSons      int       `json:"number_of_sons"`
	NumberOfDaughters int       `json:"number_of_daughters"`
	CreatedAt         time.Time `json:"created_at"`
}

// ChildRow is one row of children. ChildType is always "son" or
// "daughter" and ChildIndex is the position within that list at the time
// of persistence.
type ChildRow struct {
	ID            string    `json:"id"`
	FamilyHeadID  string    `json:"family_head_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	DateOfBirth   string    `json:"date_of_birth"`
	Age           *int      `json:"age"`
	ContactNumber string    `json:"contact_number"`
	CurrentPlace  string    `json:"current_place"`
	PhoneNumber   string    `json:"phone_number"`
	MaritalStatus string    `json:"marital_status"`
	Occupation    string    `json:"occupation"`
	ChildType     string    `json:"child_type"`
	ChildIndex    int       `json:"child_index"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChildSpouseRow is one row of child_spouses, referencing its child
type ChildSpouseRow struct {
	ID               string    `json:"id"`
	ChildID          string    `json:"child_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      string    `json:"date_of_birth"`
	Age              *int      `json:"age"`
	NativePlace      string    `json:"native_place"`
	ContactNumber    string    `json:"contact_number"`
	Occupation       string    `json:"occupation"`
	NumberOfChildren int       `json:"number_of_children"`
	CreatedAt        time.Time `json:"created_at"`
}

// GrandchildRow is one row of grandchildren, referencing its child spouse
type GrandchildRow struct {
	ID              string    `json:"id"`
	ChildSpouseID   string    `json:"child_spouse_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	DateOfBirth     string    `json:"date_of_birth"`
	Age             *int      `json:"age"`
	ContactNumber   string    `json:"contact_number"`
	CurrentPlace    string    `json:"current_place"`
	PhoneNumber     string    `json:"phone_number"`
	Occupation      string    `json:"occupation"`
	GrandchildIndex int       `json:"grandchild_index"`
	CreatedAt       time.Time `json:"created_at"`
}

// SubmissionResult summarizes what one successful submission wrote
type SubmissionResult struct {
	FamilyHeadID          string `json:"family_head_id"`
	SpousesInserted       int    `json:"spouses_inserted"`
	ChildrenInserted      int    `json:"children_inserted"`
	ChildSpousesInserted  int    `json:"child_spouses_inserted"`
	GrandchildrenInserted int    `json:"grandchildren_inserted"`
}

// FieldEditRequest is the body of a single form field edit
type FieldEditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ExportRequest carries the export password
type ExportRequest struct {
	Password string `json:"password"`
}
