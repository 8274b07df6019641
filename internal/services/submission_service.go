package services

import (
	"context"
	"time"

	"census-backend/internal/derive"
	"census-backend/internal/models"
	"census-backend/internal/repositories"
)

// FamilyStore is the insert surface the persistence mapper walks the
// tree against. Each insert returns the generated identifier that the
// next level down needs as its foreign key, so the sequence is strictly
// ordered and never concurrent.
type FamilyStore interface {
	InsertFamilyHead(ctx context.Context, row *models.FamilyHeadRow) (string, error)
	InsertSpouse(ctx context.Context, row *models.SpouseRow) (string, error)
	InsertChild(ctx context.Context, row *models.ChildRow) (string, error)
	InsertChildSpouse(ctx context.Context, row *models.ChildSpouseRow) (string, error)
	InsertGrandchild(ctx context.Context, row *models.GrandchildRow) (string, error)
}

// SubmissionService converts a validated family tree into the flat
// five-table insert sequence. The Postgres path runs the whole sequence
// inside one transaction, so a mid-sequence failure rolls back instead
// of leaving a partially written family.
type SubmissionService struct {
	repo *repositories.FamilyRepository
}

func NewSubmissionService(repo *repositories.FamilyRepository) *SubmissionService {
	return &SubmissionService{repo: repo}
}

// Submit persists one tree transactionally
func (s *SubmissionService) Submit(ctx context.Context, tree *models.FamilyTree) (*models.SubmissionResult, error) {
	var result *models.SubmissionResult
	err := s.repo.RunInTx(ctx, func(txRepo *repositories.FamilyRepository) error {
		var err error
		result, err = PersistTree(ctx, txRepo, tree)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PersistTree walks the tree in strict dependency order: head, spouse,
// each child, that child's spouse, that spouse's grandchildren. Entries
// with neither first nor last name are treated as not filled in and
// skipped. The first failed insert aborts the remaining sequence and
// surfaces the store error; atomicity is the store's concern, not the
// mapper's.
func PersistTree(ctx context.Context, store FamilyStore, tree *models.FamilyTree) (*models.SubmissionResult, error) {
	return persistTreeAt(ctx, store, tree, time.Now())
}

func persistTreeAt(ctx context.Context, store FamilyStore, tree *models.FamilyTree, now time.Time) (*models.SubmissionResult, error) {
	// Ages are recomputed here, never trusted from display state
	headAge := derive.ComputeAgeAt(tree.Head.DateOfBirth, now)
	headRow := &models.FamilyHeadRow{
		FirstName:     tree.Head.FirstName,
		LastName:      tree.Head.LastName,
		DateOfBirth:   isoDate(tree.Head.DateOfBirth),
		Age:           &headAge,
		NativePlace:   tree.Head.NativePlace,
		CurrentPlace:  tree.Head.CurrentPlace,
		ContactNumber: tree.Head.ContactNumber,
		MaritalStatus: tree.Head.MaritalStatus,
		Occupation:    tree.Head.Occupation,
	}

	headID, err := store.InsertFamilyHead(ctx, headRow)
	if err != nil {
		return nil, err
	}
	result := &models.SubmissionResult{FamilyHeadID: headID}

	// A spouse row is written only when the head is married and the
	// spouse has any identifying data.
	if tree.Head.MaritalStatus == models.MaritalMarried && tree.Spouse != nil && !tree.Spouse.IsBlank() {
		spouseRow := &models.SpouseRow{
			FamilyHeadID:      headID,
			FirstName:         tree.Spouse.FirstName,
			LastName:          tree.Spouse.LastName,
			DateOfBirth:       isoDate(tree.Spouse.DateOfBirth),
			Age:               ageFor(tree.Spouse.DateOfBirth, now),
			NativePlace:       tree.Spouse.NativePlace,
			ContactNumber:     tree.Spouse.ContactNumber,
			Occupation:        tree.Spouse.Occupation,
			NumberOfSons:      tree.Spouse.NumberOfSons,
			NumberOfDaughters: tree.Spouse.NumberOfDaughters,
		}
		if _, err := store.InsertSpouse(ctx, spouseRow); err != nil {
			return nil, err
		}
		result.SpousesInserted++
	}

	if err := persistChildren(ctx, store, tree.Sons, models.ChildTypeSon, headID, now, result); err != nil {
		return nil, err
	}
	if err := persistChildren(ctx, store, tree.Daughters, models.ChildTypeDaughter, headID, now, result); err != nil {
		return nil, err
	}

	return result, nil
}

func persistChildren(ctx context.Context, store FamilyStore, children []models.Child, childType, headID string, now time.Time, result *models.SubmissionResult) error {
	for i := range children {
		child := &children[i]
		if child.IsBlank() {
			continue
		}

		childRow := &models.ChildRow{
			FamilyHeadID:  headID,
			FirstName:     child.FirstName,
			LastName:      child.LastName,
			DateOfBirth:   isoDate(child.DateOfBirth),
			Age:           ageFor(child.DateOfBirth, now),
			ContactNumber: child.ContactNumber,
			CurrentPlace:  child.CurrentPlace,
			PhoneNumber:   child.PhoneNumber,
			MaritalStatus: child.MaritalStatus,
			Occupation:    child.Occupation,
			ChildType:     childType,
			ChildIndex:    i, // positional ordinal, gaps where blanks were skipped
		}

		childID, err := store.InsertChild(ctx, childRow)
		if err != nil {
			return err
		}
		result.ChildrenInserted++

		if child.MaritalStatus != models.MaritalMarried || child.Spouse == nil {
			continue
		}

		spouseRow := &models.ChildSpouseRow{
			ChildID:          childID,
			FirstName:        child.Spouse.FirstName,
			LastName:         child.Spouse.LastName,
			DateOfBirth:      isoDate(child.Spouse.DateOfBirth),
			Age:              ageFor(child.Spouse.DateOfBirth, now),
			NativePlace:      child.Spouse.NativePlace,
			ContactNumber:    child.Spouse.ContactNumber,
			Occupation:       child.Spouse.Occupation,
			NumberOfChildren: child.Spouse.NumberOfChildren,
		}

		childSpouseID, err := store.InsertChildSpouse(ctx, spouseRow)
		if err != nil {
			return err
		}
		result.ChildSpousesInserted++

		for j := range child.Spouse.Grandchildren {
			gc := &child.Spouse.Grandchildren[j]
			if gc.IsBlank() {
				continue
			}

			gcRow := &models.GrandchildRow{
				ChildSpouseID:   childSpouseID,
				FirstName:       gc.FirstName,
				LastName:        gc.LastName,
				DateOfBirth:     isoDate(gc.DateOfBirth),
				Age:             ageFor(gc.DateOfBirth, now),
				ContactNumber:   gc.ContactNumber,
				CurrentPlace:    gc.CurrentPlace,
				PhoneNumber:     gc.PhoneNumber,
				Occupation:      gc.Occupation,
				GrandchildIndex: j,
			}

			if _, err := store.InsertGrandchild(ctx, gcRow); err != nil {
				return err
			}
			result.GrandchildrenInserted++
		}
	}
	return nil
}

// ageFor computes the stored age for optional dates of birth: absent
// date, absent age.
func ageFor(dob string, now time.Time) *int {
	if dob == "" {
		return nil
	}
	age := derive.ComputeAgeAt(dob, now)
	return &age
}

// isoDate canonicalizes a date for storage, passing through anything
// that does not parse so the store rejects it instead of silently
// dropping it. Validation runs before persistence, so junk should not
// reach this point.
func isoDate(value string) string {
	iso, err := derive.NormalizeDate(value)
	if err != nil {
		return value
	}
	return iso
}
