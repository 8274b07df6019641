package models

// Marital status values accepted by the form and stored in the
// marital_status enum
const (
	MaritalSingle   = "single"
	MaritalMarried  = "married"
	MaritalDivorced = "divorced"
	MaritalWidowed  = "widowed"
)

// MaritalStatuses lists the selectable marital status values
var MaritalStatuses = []string{
	MaritalSingle,
	MaritalMarried,
	MaritalDivorced,
	MaritalWidowed,
}

// Occupations lists every value the occupation_type enum accepts.
// Not every role offers the full set in the form (heads and spouses get
// retired/housewife/salaried/business, children and grandchildren get
// salaried/business/student/unemployed) but the store accepts all of them.
var Occupations = []string{
	"retired",
	"housewife",
	"salaried",
	"business",
	"student",
	"unemployed",
}

// Child type discriminant. Sons and daughters share one schema and are
// distinguished by this tag only.
const (
	ChildTypeSon      = "son"
	ChildTypeDaughter = "daughter"
)

// MaxChildren caps the selectable sons/daughters/grandchildren counts
const MaxChildren = 10

// Person holds the fields shared by every role in the family tree
type Person struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth"` // ISO yyyy-mm-dd once normalized
	NativePlace   string `json:"native_place"`
	CurrentPlace  string `json:"current_place"`
	ContactNumber string `json:"contact_number"`
	MaritalStatus string `json:"marital_status"`
	Occupation    string `json:"occupation"`
	Age           int    `json:"age"` // derived from DateOfBirth, display only
}

// IsBlank reports whether the person has no identifying name data.
// Blank entries are treated as "not actually filled in" and skipped at
// persistence time.
func (p *Person) IsBlank() bool {
	return p.FirstName == "" && p.LastName == ""
}

// Spouse of the family head. Exists only while the head is married.
type Spouse struct {
	Person
	NumberOfSons      int `json:"number_of_sons"`
	NumberOfDaughters int `json:"number_of_daughters"`
}

// Child is a son or daughter of the head. The list it lives in carries
// the type; the positional index is assigned at persistence time.
type Child struct {
	Person
	PhoneNumber string       `json:"phone_number"`
	Spouse      *ChildSpouse `json:"spouse,omitempty"`
}

// ChildSpouse exists only while the owning child is married
type ChildSpouse struct {
	Person
	NumberOfChildren int          `json:"number_of_children"`
	Grandchildren    []Grandchild `json:"grandchildren"`
}

// Grandchild is a leaf of the tree, owned by a child spouse
type Grandchild struct {
	Person
	PhoneNumber string `json:"phone_number"`
}

// FamilyTree is one in-progress census record: a head, an optional
// spouse and the sons/daughters lists. The whole tree lives in transient
// form state and is flattened into five tables on submission.
type FamilyTree struct {
	Head      Person  `json:"head"`
	Spouse    *Spouse `json:"spouse,omitempty"`
	Sons      []Child `json:"sons"`
	Daughters []Child `json:"daughters"`
}

// NewFamilyTree returns the empty tree a fresh editing session starts from
func NewFamilyTree() *FamilyTree {
	return &FamilyTree{
		Sons:      []Child{},
		Daughters: []Child{},
	}
}

// Children returns the list for the given child type ("son" or "daughter")
func (t *FamilyTree) Children(childType string) []Child {
	if childType == ChildTypeDaughter {
		return t.Daughters
	}
	return t.Sons
}
