package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
	"github.com/linesmerrill/legal-case-api/storage"
)

const (
	// maxDocuments caps the files accepted with a single case
	maxDocuments = 10
	// multipartMemory is held in memory before parts spill to temp files
	multipartMemory = 32 << 20
	// DuplicateCaseNumberCode marks a numbering collision the caller may retry
	DuplicateCaseNumberCode = "DUPLICATE_CASE_NUMBER"
)

var decoder = form.NewDecoder()

// Case exported for testing purposes
type Case struct {
	DB       databases.CaseDatabase
	Numberer cases.Numberer
	Storage  storage.Provider
	Events   *EventHub
	Now      func() time.Time
}

// caseForm is the flat multipart shape posted by the intake wizard
type caseForm struct {
	District      string `form:"district"`
	Taluk         string `form:"taluk"`
	Court         string `form:"court"`
	CaseType      string `form:"caseType"`
	Subject       string `form:"subject"`
	Description   string `form:"description"`
	CaseStatus    string `form:"caseStatus"`
	Name          string `form:"name"`
	Email         string `form:"email"`
	Phone         string `form:"phone"`
	Address       string `form:"address"`
	IDProofType   string `form:"idProofType"`
	IDProofNumber string `form:"idProofNumber"`
	HearingDate   string `form:"hearingDate"`
	ActsSections  string `form:"actsSections"`
}

type upload struct {
	header *multipart.FileHeader
	key    string
	doc    models.Document
}

func (c Case) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CasesHandler returns all cases, newest first
func (c Case) CasesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}
	// Because the frontend requires that the data elements inside models.Case exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Case{}
	}
	writeJSON(w, http.StatusOK, cases.WithAge(dbResp, c.now()))
}

// CaseByIDHandler returns a case given a caseId
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	cID, ok := caseObjectID(w, r)
	if !ok {
		return
	}
	zap.S().Debugf("case_id: %v", cID.Hex())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		caseLookupError(w, err)
		return
	}
	dbResp.CaseAge = cases.Age(*dbResp, c.now())
	writeJSON(w, http.StatusOK, dbResp)
}

// CreateCaseHandler validates, numbers and stores a new case. It accepts either a
// JSON body or the multipart form posted by the intake wizard together with its
// documents.
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	now := c.now()

	var (
		newCase models.Case
		uploads []upload
		fields  = map[string]string{}
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocuments*storage.MaxUploadSize+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		newCase, err = caseFromForm(r.MultipartForm.Value, fields)
		if err != nil {
			config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
			return
		}
		uploads = documentsFromForm(r.MultipartForm, now, fields)
	} else {
		if err := json.NewDecoder(r.Body).Decode(&newCase); err != nil {
			config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
			return
		}
		// documents only ever come from uploaded files
		newCase.Documents = nil
	}

	newCase.ID = primitive.NewObjectID()
	newCase.CaseNumber = ""
	newCase.HearingReminderFor = nil
	if u, ok := api.UserFromContext(r.Context()); ok {
		newCase.CreatedBy = &u.ID
	}
	cases.Sanitize(&newCase)
	if err := cases.Validate(&newCase); err != nil {
		for k, v := range cases.Fields(err) {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		config.ValidationErrorStatus("case validation failed", fields, w, errors.New(fieldSummary(fields)))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	stored, err := c.saveUploads(ctx, uploads)
	if err != nil {
		config.ErrorStatus("failed to store documents", http.StatusInternalServerError, w, err)
		return
	}
	for _, u := range uploads {
		newCase.Documents = append(newCase.Documents, u.doc)
	}
	cases.ApplyDefaults(&newCase, now)

	if err := c.Numberer.Assign(ctx, &newCase); err != nil {
		c.discard(stored)
		config.ErrorStatus("failed to assign case number", http.StatusInternalServerError, w, err)
		return
	}

	_, err = c.DB.InsertOne(ctx, newCase)
	if err != nil {
		c.discard(stored)
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatusWithCode("case number already exists, please retry", DuplicateCaseNumberCode,
				http.StatusBadRequest, w, fmt.Errorf("%s: %w", newCase.CaseNumber, cases.ErrDuplicateCaseNumber))
			return
		}
		config.ErrorStatus("failed to create case", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("case created", "case_id", newCase.ID.Hex(), "case_number", newCase.CaseNumber, "documents", len(newCase.Documents))

	c.Events.Publish(models.CaseEvent{Type: models.CaseCreated, CaseID: newCase.ID.Hex(), CaseNumber: newCase.CaseNumber, At: now})

	newCase.CaseAge = cases.Age(newCase, now)
	writeJSON(w, http.StatusCreated, models.CaseCreatedResponse{
		Message: "Case created successfully",
		Case:    newCase,
	})
}

// UpdateCaseHandler merges the JSON body over the stored case and replaces it.
// The id, case number and creation time never change.
func (c Case) UpdateCaseHandler(w http.ResponseWriter, r *http.Request) {
	cID, ok := caseObjectID(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		caseLookupError(w, err)
		return
	}
	keep := *existing

	updated := *existing
	if existing.ClientDetails != nil {
		cd := *existing.ClientDetails
		updated.ClientDetails = &cd
	}
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	updated.ID = keep.ID
	updated.CaseNumber = keep.CaseNumber
	updated.CreatedAt = keep.CreatedAt
	updated.CreatedBy = keep.CreatedBy
	updated.HearingReminderFor = keep.HearingReminderFor
	if updated.Documents == nil {
		updated.Documents = []models.Document{}
	}
	if updated.ActsSections == nil {
		updated.ActsSections = []models.ActSection{}
	}
	cases.Sanitize(&updated)
	if err := cases.Validate(&updated); err != nil {
		config.ValidationErrorStatus("case validation failed", cases.Fields(err), w, err)
		return
	}

	now := c.now()
	updated.LastUpdated = now
	updated.UpdatedAt = now

	matched, err := c.DB.ReplaceOne(ctx, bson.M{"_id": cID}, updated)
	if err != nil {
		config.ErrorStatus("failed to update case", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, mongo.ErrNoDocuments)
		return
	}

	c.Events.Publish(models.CaseEvent{Type: models.CaseUpdated, CaseID: cID.Hex(), CaseNumber: updated.CaseNumber, At: now})

	updated.CaseAge = cases.Age(updated, now)
	writeJSON(w, http.StatusOK, updated)
}

// UpdateHearingHandler changes only the case status and the hearing date. A
// payload equal to the stored values writes nothing. An absent hearingDate
// keeps the stored date; null or "" clears it.
func (c Case) UpdateHearingHandler(w http.ResponseWriter, r *http.Request) {
	cID, ok := caseObjectID(w, r)
	if !ok {
		return
	}

	var patch models.HearingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	var hearing *time.Time
	if patch.HearingDate != nil && *patch.HearingDate != "" {
		t, err := models.ParseDate(*patch.HearingDate, time.UTC)
		if err != nil {
			config.ValidationErrorStatus("hearing validation failed", map[string]string{"hearingDate": "must be a valid date"}, w, err)
			return
		}
		hearing = &t
	}
	if patch.CaseStatus != "" && !patch.CaseStatus.Valid() {
		config.ValidationErrorStatus("hearing validation failed", map[string]string{"caseStatus": "must be a valid value"},
			w, fmt.Errorf("unknown case status %q", patch.CaseStatus))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		caseLookupError(w, err)
		return
	}

	status := existing.CaseStatus
	if patch.CaseStatus != "" {
		status = patch.CaseStatus
	}
	var current *time.Time
	if existing.ClientDetails != nil {
		current = existing.ClientDetails.HearingDate
	}
	if !patch.HearingDateSet {
		hearing = current
	}

	now := c.now()
	if status == existing.CaseStatus && sameDate(current, hearing) {
		existing.CaseAge = cases.Age(*existing, now)
		writeJSON(w, http.StatusOK, existing)
		return
	}

	set := bson.M{
		"caseStatus":  status,
		"lastUpdated": now,
		"updatedAt":   now,
	}
	update := bson.M{"$set": set}
	if patch.HearingDateSet {
		if hearing != nil {
			set["clientDetails.hearingDate"] = *hearing
		} else {
			update["$unset"] = bson.M{"clientDetails.hearingDate": ""}
		}
	}

	matched, err := c.DB.UpdateOne(ctx, bson.M{"_id": cID}, update)
	if err != nil {
		config.ErrorStatus("failed to update hearing", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, mongo.ErrNoDocuments)
		return
	}

	existing.CaseStatus = status
	if existing.ClientDetails == nil {
		existing.ClientDetails = &models.ClientDetails{}
	}
	existing.ClientDetails.HearingDate = hearing
	existing.LastUpdated = now
	existing.UpdatedAt = now

	c.Events.Publish(models.CaseEvent{Type: models.CaseUpdated, CaseID: cID.Hex(), CaseNumber: existing.CaseNumber, At: now})

	existing.CaseAge = cases.Age(*existing, now)
	writeJSON(w, http.StatusOK, existing)
}

// DeleteCaseHandler removes a case. Its files stay in storage.
func (c Case) DeleteCaseHandler(w http.ResponseWriter, r *http.Request) {
	cID, ok := caseObjectID(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		caseLookupError(w, err)
		return
	}

	deleted, err := c.DB.DeleteOne(ctx, bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to delete case", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("case not found", http.StatusNotFound, w, mongo.ErrNoDocuments)
		return
	}

	if len(existing.Documents) > 0 {
		files := make([]string, 0, len(existing.Documents))
		for _, d := range existing.Documents {
			files = append(files, storage.KeyOf(d.FilePath))
		}
		zap.S().Infow("case deleted, documents left in storage", "case_id", cID.Hex(), "files", files)
	}

	c.Events.Publish(models.CaseEvent{Type: models.CaseDeleted, CaseID: cID.Hex(), CaseNumber: existing.CaseNumber, At: c.now()})

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Case deleted successfully"})
}

func (c Case) saveUploads(ctx context.Context, uploads []upload) ([]string, error) {
	var stored []string
	for _, u := range uploads {
		f, err := u.header.Open()
		if err != nil {
			c.discard(stored)
			return nil, err
		}
		err = c.Storage.Save(ctx, u.key, f, u.header.Header.Get("Content-Type"), u.header.Size)
		f.Close()
		if err != nil {
			c.discard(stored)
			return nil, fmt.Errorf("save %s: %w", u.key, err)
		}
		stored = append(stored, u.key)
	}
	return stored, nil
}

// discard removes files saved for a case that was never inserted
func (c Case) discard(keys []string) {
	for _, k := range keys {
		if err := c.Storage.Delete(context.Background(), k); err != nil {
			zap.S().Warnw("failed to remove unused upload", "file", k, "error", err)
		}
	}
}

func caseFromForm(values map[string][]string, fields map[string]string) (models.Case, error) {
	var cf caseForm
	if err := decoder.Decode(&cf, values); err != nil {
		return models.Case{}, err
	}

	c := models.Case{
		District:    cf.District,
		Taluk:       cf.Taluk,
		Court:       cf.Court,
		CaseType:    models.CaseType(cf.CaseType),
		Subject:     cf.Subject,
		Description: cf.Description,
		CaseStatus:  models.CaseStatus(cf.CaseStatus),
		ClientDetails: &models.ClientDetails{
			Name:          cf.Name,
			Email:         cf.Email,
			Phone:         cf.Phone,
			Address:       cf.Address,
			IDProofType:   cf.IDProofType,
			IDProofNumber: cf.IDProofNumber,
		},
	}
	if cf.HearingDate != "" {
		t, err := models.ParseDate(cf.HearingDate, time.UTC)
		if err != nil {
			fields["clientDetails.hearingDate"] = "must be a valid date"
		} else {
			c.ClientDetails.HearingDate = &t
		}
	}
	if cf.ActsSections != "" {
		if err := json.Unmarshal([]byte(cf.ActsSections), &c.ActsSections); err != nil {
			fields["actsSections"] = "must be a list of act and section pairs"
		}
	}
	return c, nil
}

func documentsFromForm(mf *multipart.Form, now time.Time, fields map[string]string) []upload {
	files := mf.File["documents"]
	if len(files) > maxDocuments {
		fields["documents"] = fmt.Sprintf("at most %d documents may be attached", maxDocuments)
		return nil
	}

	uploads := make([]upload, 0, len(files))
	for i, fh := range files {
		if err := storage.ValidateUpload(fh.Filename, fh.Header.Get("Content-Type"), fh.Size); err != nil {
			fields[fmt.Sprintf("documents.%d", i)] = err.Error()
			continue
		}
		// one millisecond apart so equal names in one request stay distinct
		key := storage.FileName(now.Add(time.Duration(i)*time.Millisecond), fh.Filename)
		uploads = append(uploads, upload{
			header: fh,
			key:    key,
			doc: models.Document{
				Type:        formValue(mf.Value, fmt.Sprintf("docType_documents_%d", i), "Other"),
				Title:       formValue(mf.Value, fmt.Sprintf("docTitle_documents_%d", i), fh.Filename),
				Description: formValue(mf.Value, fmt.Sprintf("docDesc_documents_%d", i), ""),
				FileName:    fh.Filename,
				FilePath:    storage.PublicPath(key),
				UploadDate:  now,
			},
		})
	}
	return uploads
}

func formValue(values map[string][]string, key, fallback string) string {
	if v := values[key]; len(v) > 0 && strings.TrimSpace(v[0]) != "" {
		return v[0]
	}
	return fallback
}

func caseObjectID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	caseID := mux.Vars(r)["case_id"]
	cID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return cID, true
}

func caseLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("case not found", http.StatusNotFound, w, err)
		return
	}
	config.ErrorStatus("failed to get case by ID", http.StatusInternalServerError, w, err)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func fieldSummary(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, k := range cases.SortedFields(fields) {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
