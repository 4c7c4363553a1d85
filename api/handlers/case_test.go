package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/legal-case-api/api/handlers"
	"github.com/linesmerrill/legal-case-api/api/testhelpers"
	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/databases/mocks"
	"github.com/linesmerrill/legal-case-api/models"
	"github.com/linesmerrill/legal-case-api/storage"
)

var fixedNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type caseFixture struct {
	db      *memCases
	counter *memCounter
	dir     string
	handler handlers.Case
}

func newCaseFixture(t *testing.T) *caseFixture {
	dir := t.TempDir()
	f := &caseFixture{db: &memCases{}, counter: &memCounter{}, dir: dir}
	f.handler = handlers.Case{
		DB:       f.db,
		Numberer: cases.Numberer{Counters: f.counter, Now: func() time.Time { return fixedNow }},
		Storage:  storage.NewLocal(dir),
		Now:      func() time.Time { return fixedNow },
	}
	return f
}

func validCase() models.Case {
	hearing := fixedNow.AddDate(0, 0, 1)
	return models.Case{
		District: "Bengaluru Urban",
		Taluk:    "Anekal",
		Court:    "Civil Court Anekal",
		CaseType: models.CaseTypeCivil,
		Subject:  "Property boundary dispute",
		ClientDetails: &models.ClientDetails{
			Name:          "Asha Rao",
			Phone:         "9876543210",
			Address:       "12 MG Road",
			IDProofType:   "Aadhar",
			IDProofNumber: "123412341234",
			HearingDate:   &hearing,
		},
		ActsSections: []models.ActSection{{Act: "IPC", Section: "447"}},
	}
}

func jsonRequest(t *testing.T, method, url string, v interface{}) *http.Request {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, values map[string]string, files []filePart) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="documents"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", "/api/cases", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formValues() map[string]string {
	return map[string]string{
		"district":      "Bengaluru Urban",
		"taluk":         "Anekal",
		"court":         "Civil Court Anekal",
		"caseType":      "Criminal",
		"subject":       "Theft of two wheeler",
		"name":          "Ravi Kumar",
		"phone":         "9876543210",
		"address":       "4 Temple Street",
		"idProofType":   "PAN",
		"idProofNumber": "ABCDE1234F",
		"hearingDate":   "2025-06-11",
		"actsSections":  `[{"act":"IPC","section":"379"}]`,
	}
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.MessageError {
	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Response
}

func createCase(t *testing.T, f *caseFixture, c models.Case) models.Case {
	rr := serve(f.handler.CreateCaseHandler, jsonRequest(t, "POST", "/api/cases", c))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp models.CaseCreatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Case
}

func TestCase_CreateCaseHandlerJSON(t *testing.T) {
	f := newCaseFixture(t)
	c := validCase()
	c.CaseNumber = "CASE19990042"
	c.CaseStatus = ""

	rr := serve(f.handler.CreateCaseHandler, jsonRequest(t, "POST", "/api/cases", c))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp models.CaseCreatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Case created successfully", resp.Message)
	assert.Equal(t, "CASE20250001", resp.Case.CaseNumber)
	assert.Equal(t, models.CaseStatusSubmitted, resp.Case.CaseStatus)
	assert.True(t, fixedNow.Equal(resp.Case.FiledDate))
	assert.NotNil(t, resp.Case.Documents)
	assert.Empty(t, resp.Case.Documents)
	assert.Equal(t, 0, resp.Case.CaseAge)
	assert.False(t, resp.Case.ID.IsZero())
	assert.Equal(t, 1, f.db.len())
}

func TestCase_CreateCaseHandlerValidation(t *testing.T) {
	f := newCaseFixture(t)
	c := validCase()
	c.District = ""
	c.CaseType = "Maritime"
	c.ClientDetails.Phone = ""
	c.ActsSections = append(c.ActsSections, models.ActSection{Act: "CrPC"})

	rr := serve(f.handler.CreateCaseHandler, jsonRequest(t, "POST", "/api/cases", c))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
	assert.Contains(t, body.Fields, "district")
	assert.Contains(t, body.Fields, "caseType")
	assert.Contains(t, body.Fields, "clientDetails.phone")
	assert.Contains(t, body.Fields, "actsSections.1.section")
	assert.Equal(t, 0, f.db.len())
	assert.Empty(t, f.counter.seq, "no number is minted for an invalid case")
}

func TestCase_CreateCaseHandlerMissingClient(t *testing.T) {
	f := newCaseFixture(t)
	c := validCase()
	c.ClientDetails = nil

	rr := serve(f.handler.CreateCaseHandler, jsonRequest(t, "POST", "/api/cases", c))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "clientDetails")
}

func TestCase_CreateCaseHandlerBadJSON(t *testing.T) {
	f := newCaseFixture(t)
	req, _ := http.NewRequest("POST", "/api/cases", bytes.NewBufferString("{"))

	rr := serve(f.handler.CreateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "failed to decode request", decodeError(t, rr).Message)
}

func TestCase_CreateCaseHandlerMultipart(t *testing.T) {
	f := newCaseFixture(t)
	values := formValues()
	values["docType_documents_0"] = "FIR"
	values["docTitle_documents_0"] = "First information report"
	values["docDesc_documents_0"] = "Filed at the local station"

	req := multipartRequest(t, values, []filePart{
		{name: "fir copy.pdf", contentType: "application/pdf", body: "%PDF-1.4"},
		{name: "photo.png", contentType: "image/png", body: "png"},
	})
	rr := serve(f.handler.CreateCaseHandler, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp models.CaseCreatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	got := resp.Case
	assert.Equal(t, models.CaseTypeCriminal, got.CaseType)
	assert.Equal(t, "Ravi Kumar", got.ClientDetails.Name)
	require.NotNil(t, got.ClientDetails.HearingDate)
	assert.Equal(t, "2025-06-11", got.ClientDetails.HearingDate.UTC().Format(models.DateLayout))
	assert.Equal(t, []models.ActSection{{Act: "IPC", Section: "379"}}, got.ActsSections)

	require.Len(t, got.Documents, 2)
	first := got.Documents[0]
	assert.Equal(t, "FIR", first.Type)
	assert.Equal(t, "First information report", first.Title)
	assert.Equal(t, "Filed at the local station", first.Description)
	assert.Equal(t, "fir copy.pdf", first.FileName)
	key := fmt.Sprintf("%d-fir_copy.pdf", fixedNow.UnixMilli())
	assert.Equal(t, "/uploads/"+key, first.FilePath)

	second := got.Documents[1]
	assert.Equal(t, "Other", second.Type)
	assert.Equal(t, "photo.png", second.Title)
	assert.Equal(t, "photo.png", second.FileName)
	assert.NotEqual(t, first.FilePath, second.FilePath)

	stored, err := os.ReadFile(filepath.Join(f.dir, storage.KeyOf(first.FilePath)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(stored))
}

func TestCase_CreateCaseHandlerRejectsUpload(t *testing.T) {
	f := newCaseFixture(t)
	req := multipartRequest(t, formValues(), []filePart{
		{name: "notes.exe", contentType: "application/octet-stream", body: "MZ"},
	})

	rr := serve(f.handler.CreateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "documents.0")
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, f.db.len())
}

func TestCase_CreateCaseHandlerBadActsSections(t *testing.T) {
	f := newCaseFixture(t)
	values := formValues()
	values["actsSections"] = "not json"

	rr := serve(f.handler.CreateCaseHandler, multipartRequest(t, values, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "actsSections")
}

func TestCase_CreateCaseHandlerDuplicateNumber(t *testing.T) {
	f := newCaseFixture(t)
	f.db.docs = append(f.db.docs, models.Case{ID: primitive.NewObjectID(), CaseNumber: "CASE20250001"})

	req := multipartRequest(t, formValues(), []filePart{
		{name: "fir.pdf", contentType: "application/pdf", body: "%PDF"},
	})
	rr := serve(f.handler.CreateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, handlers.DuplicateCaseNumberCode, decodeError(t, rr).Code)
	assert.Equal(t, 1, f.db.len())

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "files of a case that was never stored are removed")

	// the counter moved on, so a retry succeeds with the next number
	created := createCase(t, f, validCase())
	assert.Equal(t, "CASE20250002", created.CaseNumber)
}

func TestCase_CreateCaseHandlerCounterFailure(t *testing.T) {
	f := newCaseFixture(t)
	f.counter.err = errStorage

	rr := serve(f.handler.CreateCaseHandler, jsonRequest(t, "POST", "/api/cases", validCase()))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to assign case number", decodeError(t, rr).Message)
	assert.Equal(t, 0, f.db.len())
}

func TestCase_CreateCaseHandlerConcurrentNumbers(t *testing.T) {
	f := newCaseFixture(t)
	const n = 40

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, _ := json.Marshal(validCase())
			req := httptest.NewRequest("POST", "/api/cases", bytes.NewReader(b))
			rr := httptest.NewRecorder()
			f.handler.CreateCaseHandler(rr, req)
			if rr.Code != http.StatusCreated {
				return
			}
			var resp models.CaseCreatedResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err == nil {
				numbers <- resp.Case.CaseNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	var got []string
	for num := range numbers {
		got = append(got, num)
	}
	sort.Strings(got)
	require.Len(t, got, n)
	for i, num := range got {
		assert.Equal(t, cases.Format(2025, int64(i+1)), num)
	}
}

func TestCase_CaseByIDHandlerInvalidID(t *testing.T) {
	f := newCaseFixture(t)
	req, err := http.NewRequest("GET", "/api/cases/1234", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": "1234"})

	rr := serve(f.handler.CaseByIDHandler, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestCase_CaseByIDHandlerNotFound(t *testing.T) {
	f := newCaseFixture(t)
	id := primitive.NewObjectID().Hex()
	req, _ := http.NewRequest("GET", "/api/cases/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"case_id": id})

	rr := serve(f.handler.CaseByIDHandler, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "case not found", decodeError(t, rr).Message)
}

func TestCase_CaseByIDHandlerDecodeError(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("FindOne", mock.Anything, mock.Anything).Return(testhelpers.Failing(errors.New("mocked-error")))
	db := testhelpers.NewDB(map[string]*mocks.CollectionHelper{"cases": conn})
	c := handlers.Case{DB: databases.NewCaseDatabase(db)}

	id := primitive.NewObjectID().Hex()
	req, _ := http.NewRequest("GET", "/api/cases/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"case_id": id})

	rr := serve(c.CaseByIDHandler, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get case by ID", Error: "mocked-error"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestCase_CaseByIDHandlerComputesAge(t *testing.T) {
	f := newCaseFixture(t)
	stored := validCase()
	stored.ID = primitive.NewObjectID()
	stored.FiledDate = fixedNow.Add(-36 * time.Hour)
	f.db.docs = append(f.db.docs, stored)

	req, _ := http.NewRequest("GET", "/api/cases/"+stored.ID.Hex(), nil)
	req = mux.SetURLVars(req, map[string]string{"case_id": stored.ID.Hex()})
	rr := serve(f.handler.CaseByIDHandler, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.CaseAge)
}

func TestCase_CasesHandlerNewestFirst(t *testing.T) {
	f := newCaseFixture(t)
	first := createCase(t, f, validCase())
	second := createCase(t, f, validCase())

	rr := serve(f.handler.CasesHandler, httptest.NewRequest("GET", "/api/cases", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, second.CaseNumber, got[0].CaseNumber)
	assert.Equal(t, first.CaseNumber, got[1].CaseNumber)
}

func TestCase_CasesHandlerEmpty(t *testing.T) {
	f := newCaseFixture(t)

	rr := serve(f.handler.CasesHandler, httptest.NewRequest("GET", "/api/cases", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestCase_CasesHandlerFailedToFind(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	db := testhelpers.NewDB(map[string]*mocks.CollectionHelper{"cases": conn})
	c := handlers.Case{DB: databases.NewCaseDatabase(db)}

	rr := serve(c.CasesHandler, httptest.NewRequest("GET", "/api/cases", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "failed to get cases", decodeError(t, rr).Message)
}

func TestCase_UpdateCaseHandlerKeepsIdentity(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())

	update := map[string]interface{}{
		"subject":    "Boundary dispute and trespass",
		"caseNumber": "CASE19990001",
		"createdAt":  "2001-01-01T00:00:00Z",
		"caseStatus": "Active",
		"clientDetails": map[string]interface{}{
			"phone": "9123456780",
		},
	}
	req := jsonRequest(t, "PUT", "/api/cases/"+created.ID.Hex(), update)
	req = mux.SetURLVars(req, map[string]string{"case_id": created.ID.Hex()})
	f.handler.Now = func() time.Time { return fixedNow.Add(time.Hour) }

	rr := serve(f.handler.UpdateCaseHandler, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CaseNumber, got.CaseNumber)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "Boundary dispute and trespass", got.Subject)
	assert.Equal(t, models.CaseStatusActive, got.CaseStatus)
	assert.Equal(t, "9123456780", got.ClientDetails.Phone)
	assert.Equal(t, "Asha Rao", got.ClientDetails.Name, "fields absent from the payload are kept")
	assert.True(t, fixedNow.Add(time.Hour).Equal(got.LastUpdated))
}

func TestCase_UpdateCaseHandlerValidation(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())

	req := jsonRequest(t, "PUT", "/api/cases/"+created.ID.Hex(), map[string]interface{}{"caseStatus": "Archived", "court": ""})
	req = mux.SetURLVars(req, map[string]string{"case_id": created.ID.Hex()})

	rr := serve(f.handler.UpdateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decodeError(t, rr).Fields
	assert.Contains(t, fields, "caseStatus")
	assert.Contains(t, fields, "court")
}

func TestCase_UpdateCaseHandlerNotFound(t *testing.T) {
	f := newCaseFixture(t)
	id := primitive.NewObjectID().Hex()
	req := jsonRequest(t, "PUT", "/api/cases/"+id, map[string]interface{}{"subject": "x"})
	req = mux.SetURLVars(req, map[string]string{"case_id": id})

	rr := serve(f.handler.UpdateCaseHandler, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func hearingRequest(t *testing.T, id string, body interface{}) *http.Request {
	req := jsonRequest(t, "PATCH", "/api/cases/"+id+"/hearing", body)
	return mux.SetURLVars(req, map[string]string{"case_id": id})
}

func TestCase_UpdateHearingHandler(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())
	id := created.ID.Hex()

	rr := serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{
		"hearingDate": "2025-07-01",
		"caseStatus":  "Under Review",
	}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.CaseStatusUnderReview, got.CaseStatus)
	assert.Equal(t, "2025-07-01", got.ClientDetails.HearingDate.UTC().Format(models.DateLayout))
	assert.Equal(t, 1, f.db.updates)

	set, _ := f.db.lastUpdate["$set"].(bson.M)
	var keys []string
	for k := range set {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"caseStatus", "clientDetails.hearingDate", "lastUpdated", "updatedAt"}, keys)

	// the same payload again changes nothing and writes nothing
	rr = serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{
		"hearingDate": "2025-07-01",
		"caseStatus":  "Under Review",
	}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.db.updates)

	stored, err := f.db.FindOne(context.Background(), bson.M{"_id": created.ID})
	require.NoError(t, err)
	assert.Equal(t, created.CaseNumber, stored.CaseNumber)
	assert.Equal(t, created.Subject, stored.Subject)
	assert.Equal(t, created.Court, stored.Court)
	assert.Equal(t, created.ActsSections, stored.ActsSections)
	assert.Equal(t, created.ClientDetails.Name, stored.ClientDetails.Name)
	assert.Equal(t, models.CaseStatusUnderReview, stored.CaseStatus)
	assert.Equal(t, "2025-07-01", stored.ClientDetails.HearingDate.UTC().Format(models.DateLayout))
}

func TestCase_UpdateHearingHandlerStatusOnlyKeepsDate(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())
	id := created.ID.Hex()
	require.NotNil(t, created.ClientDetails.HearingDate)
	want := created.ClientDetails.HearingDate.UTC()

	rr := serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{"caseStatus": "Active"}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, models.CaseStatusActive, got.CaseStatus)
	require.NotNil(t, got.ClientDetails.HearingDate)
	assert.True(t, want.Equal(*got.ClientDetails.HearingDate))
	assert.NotContains(t, f.db.lastUpdate, "$unset")

	stored, err := f.db.FindOne(context.Background(), bson.M{"_id": created.ID})
	require.NoError(t, err)
	require.NotNil(t, stored.ClientDetails.HearingDate)
	assert.True(t, want.Equal(*stored.ClientDetails.HearingDate))
}

func TestCase_UpdateHearingHandlerClearsDate(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())
	id := created.ID.Hex()

	rr := serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{
		"hearingDate": nil,
		"caseStatus":  "Submitted",
	}))

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Case
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Nil(t, got.ClientDetails.HearingDate)
	assert.Equal(t, 1, f.db.updates)
}

func TestCase_UpdateHearingHandlerInvalid(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())
	id := created.ID.Hex()

	rr := serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{"caseStatus": "Archived"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "caseStatus")

	rr = serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{"hearingDate": "next tuesday"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "hearingDate")
	assert.Equal(t, 0, f.db.updates)
}

func TestCase_UpdateHearingHandlerNotFound(t *testing.T) {
	f := newCaseFixture(t)
	id := primitive.NewObjectID().Hex()

	rr := serve(f.handler.UpdateHearingHandler, hearingRequest(t, id, map[string]interface{}{"caseStatus": "Active"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCase_DeleteCaseHandler(t *testing.T) {
	f := newCaseFixture(t)
	created := createCase(t, f, validCase())
	id := created.ID.Hex()

	req, _ := http.NewRequest("DELETE", "/api/cases/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"case_id": id})
	rr := serve(f.handler.DeleteCaseHandler, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Case deleted successfully"}`, rr.Body.String())
	assert.Equal(t, 0, f.db.len())

	rr = serve(f.handler.DeleteCaseHandler, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	get, _ := http.NewRequest("GET", "/api/cases/"+id, nil)
	get = mux.SetURLVars(get, map[string]string{"case_id": id})
	rr = serve(f.handler.CaseByIDHandler, get)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCase_UpcomingHearingsHandler(t *testing.T) {
	f := newCaseFixture(t)
	soon := validCase()
	createCase(t, f, soon)

	later := validCase()
	h := fixedNow.AddDate(0, 0, 5)
	later.ClientDetails.HearingDate = &h
	createCase(t, f, later)

	rr := serve(f.handler.UpcomingHearingsHandler, httptest.NewRequest("GET", "/api/cases/hearings/upcoming", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var alerts []models.HearingAlert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "CASE20250001", alerts[0].CaseNumber)
	assert.Equal(t, 1, alerts[0].DaysLeft)
}

func TestCase_ExportCasesHandler(t *testing.T) {
	f := newCaseFixture(t)
	createCase(t, f, validCase())
	criminal := validCase()
	criminal.CaseType = models.CaseTypeCriminal
	criminal.Subject = "Chain snatching"
	createCase(t, f, criminal)

	rr := serve(f.handler.ExportCasesHandler, httptest.NewRequest("GET", "/api/cases/export?type=Criminal", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "attachment; filename=\"cases-20250610.xlsx\"", rr.Header().Get("Content-Disposition"))

	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Cases")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "Chain snatching")
}
