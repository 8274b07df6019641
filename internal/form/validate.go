package form

import (
	"fmt"
	"time"

	"census-backend/internal/derive"
	"census-backend/internal/models"
)

// ValidationResult aggregates every submit-time error in one pass so
// the caller can present the complete list. Either the whole tree is
// accepted or none of it is sent.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ContactValid applies the per-field required/optional policy on top of
// the digit-only predicate. The predicate itself only judges
// digit-only-ness; whether an empty value passes depends on the field.
func ContactValid(value string, required bool) bool {
	if value == "" {
		return !required
	}
	return derive.IsDigits(value)
}

// ValidateSubmission runs the required-field and contact-number checks
// over the whole tree. Not fail-fast.
func ValidateSubmission(tree *models.FamilyTree) ValidationResult {
	return validateSubmissionAt(tree, time.Now())
}

func validateSubmissionAt(tree *models.FamilyTree, now time.Time) ValidationResult {
	result := ValidationResult{}

	if tree.Head.FirstName == "" {
		result.addError("family head first name is required")
	}
	if tree.Head.LastName == "" {
		result.addError("family head last name is required")
	}
	if tree.Head.DateOfBirth == "" {
		result.addError("family head date of birth is required")
	} else {
		checkDate(&result, "family head", tree.Head.DateOfBirth, now)
	}

	if !ContactValid(tree.Head.ContactNumber, false) {
		result.addError("family head contact number must contain only digits")
	}

	if tree.Head.MaritalStatus == models.MaritalMarried && tree.Spouse != nil {
		if !ContactValid(tree.Spouse.ContactNumber, false) {
			result.addError("spouse contact number must contain only digits")
		}
		checkDate(&result, "spouse", tree.Spouse.DateOfBirth, now)
	}

	validateChildren(&result, models.ChildTypeSon, tree.Sons, now)
	validateChildren(&result, models.ChildTypeDaughter, tree.Daughters, now)

	result.IsValid = len(result.Errors) == 0
	return result
}

func validateChildren(result *ValidationResult, childType string, children []models.Child, now time.Time) {
	for i := range children {
		child := &children[i]
		label := fmt.Sprintf("%s %d", childType, i+1)
		checkDate(result, label, child.DateOfBirth, now)

		if child.Spouse != nil {
			checkDate(result, label+" spouse", child.Spouse.DateOfBirth, now)
			for j := range child.Spouse.Grandchildren {
				gcLabel := fmt.Sprintf("%s grandchild %d", label, j+1)
				checkDate(result, gcLabel, child.Spouse.Grandchildren[j].DateOfBirth, now)
			}
		}
	}
}

// checkDate enforces that a non-empty date of birth parses and is no
// later than today. No lower bound here; that is a widget concern.
func checkDate(result *ValidationResult, label, value string, now time.Time) {
	if value == "" {
		return
	}
	parsed, err := derive.ParseDate(value)
	if err != nil {
		result.addError("%s date of birth is not a valid date", label)
		return
	}
	if parsed.After(now) {
		result.addError("%s date of birth cannot be in the future", label)
	}
}
