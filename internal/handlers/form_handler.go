package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"census-backend/internal/form"
	"census-backend/internal/models"
	"census-backend/internal/monitoring"
	"census-backend/internal/session"

	"github.com/gorilla/mux"
)

// FamilySubmitter persists one validated tree. Satisfied by
// services.SubmissionService.
type FamilySubmitter interface {
	Submit(ctx context.Context, tree *models.FamilyTree) (*models.SubmissionResult, error)
}

// FormHandler drives the interactive data-entry flow: one server-side
// session per family being entered, edited field by field until submit.
type FormHandler struct {
	Sessions  *session.Store
	Submitter FamilySubmitter
}

func NewFormHandler(sessions *session.Store, submitter FamilySubmitter) *FormHandler {
	return &FormHandler{Sessions: sessions, Submitter: submitter}
}

// GetOptions returns the selectable form values so clients render the
// same dropdowns the store accepts
func (h *FormHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"marital_statuses": models.MaritalStatuses,
		"occupations":      models.Occupations,
		"child_types":      []string{models.ChildTypeSon, models.ChildTypeDaughter},
		"max_children":     models.MaxChildren,
	})
}

// CreateSession starts a new empty editing session
func (h *FormHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Create()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sess.ID,
		"state":      sess.State.Tree,
	})
}

// GetSession returns the current tree including derived ages
func (h *FormHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	var tree *models.FamilyTree
	sess.WithLock(func(state *form.State) error {
		tree = state.Tree
		return nil
	})
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sess.ID,
		"state":      tree,
	})
}

// DeleteSession discards a session without persisting anything
func (h *FormHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.Sessions.Get(id); !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	h.Sessions.Delete(id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Session discarded",
	})
}

// EditHead applies a single field edit to the family head
func (h *FormHandler) EditHead(w http.ResponseWriter, r *http.Request) {
	h.applyEdit(w, r, func(state *form.State, req *models.FieldEditRequest) error {
		return state.SetHeadField(req.Field, req.Value)
	})
}

// EditSpouse applies a single field edit to the head's spouse
func (h *FormHandler) EditSpouse(w http.ResponseWriter, r *http.Request) {
	h.applyEdit(w, r, func(state *form.State, req *models.FieldEditRequest) error {
		return state.SetSpouseField(req.Field, req.Value)
	})
}

// EditChild applies a single field edit to a son or daughter
func (h *FormHandler) EditChild(w http.ResponseWriter, r *http.Request) {
	childType, index, ok := childVars(w, r)
	if !ok {
		return
	}
	h.applyEdit(w, r, func(state *form.State, req *models.FieldEditRequest) error {
		return state.SetChildField(childType, index, req.Field, req.Value)
	})
}

// EditChildSpouse applies a single field edit to a child's spouse
func (h *FormHandler) EditChildSpouse(w http.ResponseWriter, r *http.Request) {
	childType, index, ok := childVars(w, r)
	if !ok {
		return
	}
	h.applyEdit(w, r, func(state *form.State, req *models.FieldEditRequest) error {
		return state.SetChildSpouseField(childType, index, req.Field, req.Value)
	})
}

// EditGrandchild applies a single field edit to a grandchild
func (h *FormHandler) EditGrandchild(w http.ResponseWriter, r *http.Request) {
	childType, index, ok := childVars(w, r)
	if !ok {
		return
	}
	gcIndex, err := strconv.Atoi(mux.Vars(r)["gcIndex"])
	if err != nil {
		http.Error(w, "Invalid grandchild index", http.StatusBadRequest)
		return
	}
	h.applyEdit(w, r, func(state *form.State, req *models.FieldEditRequest) error {
		return state.SetGrandchildField(childType, index, gcIndex, req.Field, req.Value)
	})
}

// applyEdit decodes the {field, value} body, runs the edit under the
// session lock and echoes the resulting tree so the client can re-render
// cascaded changes (cleared spouses, resized child lists, derived ages).
func (h *FormHandler) applyEdit(w http.ResponseWriter, r *http.Request, edit func(*form.State, *models.FieldEditRequest) error) {
	sess, ok := h.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var req models.FieldEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Field == "" {
		http.Error(w, "Field is required", http.StatusBadRequest)
		return
	}

	var tree *models.FamilyTree
	err := sess.WithLock(func(state *form.State) error {
		if err := edit(state, &req); err != nil {
			return err
		}
		tree = state.Tree
		return nil
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, form.ErrIndexOutOfRange) {
			status = http.StatusNotFound
		}
		http.Error(w, "Edit failed: "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sess.ID,
		"state":      tree,
	})
}

// Submit validates the session's tree and persists it. A valid tree that
// stores cleanly resets the session to empty; a store failure keeps the
// entered data so the operator can retry.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var result *models.SubmissionResult
	var validation form.ValidationResult

	err := sess.WithLock(func(state *form.State) error {
		validation = form.ValidateSubmission(state.Tree)
		if !validation.IsValid {
			return nil
		}

		var err error
		result, err = h.Submitter.Submit(r.Context(), state.Tree)
		if err != nil {
			return err
		}
		state.Reset()
		return nil
	})

	w.Header().Set("Content-Type", "application/json")
	switch {
	case err != nil:
		monitoring.RecordSubmission("error")
		log.Printf("Submission failed for session %s: %v", sess.ID, err)
		http.Error(w, "Failed to save family: "+err.Error(), http.StatusInternalServerError)
	case !validation.IsValid:
		monitoring.RecordSubmission("invalid")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"errors":  validation.Errors,
		})
	default:
		recordInsertedRows(result)
		log.Printf("Family %s saved from session %s", result.FamilyHeadID, sess.ID)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  result,
		})
	}
}

// CreateFamily is the one-shot path for non-interactive clients: a whole
// tree in the request body, validated and persisted without a session.
func (h *FormHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var tree models.FamilyTree
	if err := json.NewDecoder(r.Body).Decode(&tree); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	validation := form.ValidateSubmission(&tree)
	if !validation.IsValid {
		monitoring.RecordSubmission("invalid")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"errors":  validation.Errors,
		})
		return
	}

	result, err := h.Submitter.Submit(r.Context(), &tree)
	if err != nil {
		monitoring.RecordSubmission("error")
		log.Printf("Direct family submit failed: %v", err)
		http.Error(w, "Failed to save family: "+err.Error(), http.StatusInternalServerError)
		return
	}

	recordInsertedRows(result)
	log.Printf("Family %s saved via direct submit", result.FamilyHeadID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

func childVars(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	vars := mux.Vars(r)
	childType := vars["type"]
	if childType != models.ChildTypeSon && childType != models.ChildTypeDaughter {
		http.Error(w, "Invalid child type", http.StatusBadRequest)
		return "", 0, false
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "Invalid child index", http.StatusBadRequest)
		return "", 0, false
	}
	return childType, index, true
}

func recordInsertedRows(result *models.SubmissionResult) {
	monitoring.RecordSubmission("success")
	monitoring.AddRows("family_heads", 1)
	monitoring.AddRows("spouses", result.SpousesInserted)
	monitoring.AddRows("children", result.ChildrenInserted)
	monitoring.AddRows("child_spouses", result.ChildSpousesInserted)
	monitoring.AddRows("grandchildren", result.GrandchildrenInserted)
}
