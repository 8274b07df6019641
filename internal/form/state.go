// Package form owns the in-progress family tree for one editing session
// and applies field-level edits while keeping the existence invariants:
// a spouse exists only while the head is married, child lists match the
// configured counts, a child spouse exists only while that child is
// married, and grandchildren lists match the child spouse's count.
package form

import (
	"errors"
	"fmt"
	"strconv"

	"census-backend/internal/derive"
	"census-backend/internal/models"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoSpouse        = errors.New("family head is not married")
	ErrNoChildSpouse   = errors.New("child is not married")
)

// State is the form state holder for one session. It is not safe for
// concurrent use; the session store serializes access per session.
type State struct {
	Tree *models.FamilyTree
}

// NewState returns a state holding a fresh empty tree
func NewState() *State {
	return &State{Tree: models.NewFamilyTree()}
}

// Reset discards the tree after a successful submission
func (s *State) Reset() {
	s.Tree = models.NewFamilyTree()
}

// SetHeadField applies one edit to the family head. A marital status
// change toggles spouse existence: transitioning to married creates an
// empty spouse record, transitioning away discards the spouse and every
// descendant child, child spouse and grandchild.
func (s *State) SetHeadField(field, value string) error {
	if field == "marital_status" {
		wasMarried := s.Tree.Head.MaritalStatus == models.MaritalMarried
		s.Tree.Head.MaritalStatus = value

		if value == models.MaritalMarried {
			if !wasMarried {
				s.Tree.Spouse = &models.Spouse{}
			}
		} else if wasMarried {
			s.Tree.Spouse = nil
			s.Tree.Sons = []models.Child{}
			s.Tree.Daughters = []models.Child{}
		}
		return nil
	}

	return setPersonField(&s.Tree.Head, field, value)
}

// SetSpouseField applies one edit to the spouse. Changing
// number_of_sons or number_of_daughters regenerates the corresponding
// child list at the new length; previous entries are discarded
// (destructive resize, see DESIGN.md).
func (s *State) SetSpouseField(field, value string) error {
	if s.Tree.Spouse == nil {
		return ErrNoSpouse
	}

	switch field {
	case "number_of_sons":
		count, err := parseCount(field, value)
		if err != nil {
			return err
		}
		s.Tree.Spouse.NumberOfSons = count
		s.Tree.Sons = blankChildren(count)
		return nil
	case "number_of_daughters":
		count, err := parseCount(field, value)
		if err != nil {
			return err
		}
		s.Tree.Spouse.NumberOfDaughters = count
		s.Tree.Daughters = blankChildren(count)
		return nil
	}

	return setPersonField(&s.Tree.Spouse.Person, field, value)
}

// SetChildField applies one edit to the son or daughter at index.
// Setting marital status to married creates an empty child spouse; any
// other value discards the child spouse and its grandchildren.
func (s *State) SetChildField(childType string, index int, field, value string) error {
	child, err := s.child(childType, index)
	if err != nil {
		return err
	}

	switch field {
	case "marital_status":
		child.MaritalStatus = value
		if value == models.MaritalMarried {
			if child.Spouse == nil {
				child.Spouse = &models.ChildSpouse{Grandchildren: []models.Grandchild{}}
			}
		} else {
			child.Spouse = nil
		}
		return nil
	case "phone_number":
		child.PhoneNumber = value
		return nil
	}

	return setPersonField(&child.Person, field, value)
}

// SetChildSpouseField applies one edit to the spouse of the child at
// childIndex. Changing number_of_children regenerates the grandchildren
// list destructively, like the child lists.
func (s *State) SetChildSpouseField(childType string, childIndex int, field, value string) error {
	child, err := s.child(childType, childIndex)
	if err != nil {
		return err
	}
	if child.Spouse == nil {
		return ErrNoChildSpouse
	}

	if field == "number_of_children" {
		count, err := parseCount(field, value)
		if err != nil {
			return err
		}
		child.Spouse.NumberOfChildren = count
		child.Spouse.Grandchildren = make([]models.Grandchild, count)
		return nil
	}

	return setPersonField(&child.Spouse.Person, field, value)
}

// SetGrandchildField applies one edit to a grandchild leaf. No
// cascading effects.
func (s *State) SetGrandchildField(childType string, childIndex, grandchildIndex int, field, value string) error {
	child, err := s.child(childType, childIndex)
	if err != nil {
		return err
	}
	if child.Spouse == nil {
		return ErrNoChildSpouse
	}
	if grandchildIndex < 0 || grandchildIndex >= len(child.Spouse.Grandchildren) {
		return fmt.Errorf("grandchild %d: %w", grandchildIndex, ErrIndexOutOfRange)
	}

	gc := &child.Spouse.Grandchildren[grandchildIndex]
	if field == "phone_number" {
		gc.PhoneNumber = value
		return nil
	}
	return setPersonField(&gc.Person, field, value)
}

func (s *State) child(childType string, index int) (*models.Child, error) {
	if childType != models.ChildTypeSon && childType != models.ChildTypeDaughter {
		return nil, fmt.Errorf("unknown child type %q", childType)
	}

	list := s.Tree.Children(childType)
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%s %d: %w", childType, index, ErrIndexOutOfRange)
	}
	return &list[index], nil
}

// setPersonField stores one shared-person field. Free-text name and
// place values are upper-cased; a date of birth edit refreshes the
// derived age. Enum values are stored as entered.
func setPersonField(p *models.Person, field, value string) error {
	switch field {
	case "first_name":
		p.FirstName = derive.UppercaseName(value)
	case "last_name":
		p.LastName = derive.UppercaseName(value)
	case "native_place":
		p.NativePlace = derive.UppercaseName(value)
	case "current_place":
		p.CurrentPlace = derive.UppercaseName(value)
	case "contact_number":
		p.ContactNumber = value
	case "occupation":
		p.Occupation = value
	case "marital_status":
		p.MaritalStatus = value
	case "date_of_birth":
		if iso, err := derive.NormalizeDate(value); err == nil {
			p.DateOfBirth = iso
		} else {
			// Keep the raw value so the user sees what they typed;
			// the derived age falls back to 0 until it parses.
			p.DateOfBirth = value
		}
		p.Age = derive.ComputeAge(p.DateOfBirth)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func blankChildren(count int) []models.Child {
	return make([]models.Child, count)
}

func parseCount(field, value string) (int, error) {
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	if count < 0 || count > models.MaxChildren {
		return 0, fmt.Errorf("%s must be between 0 and %d", field, models.MaxChildren)
	}
	return count, nil
}
