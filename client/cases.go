package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/go-playground/form/v4"

	"github.com/linesmerrill/legal-case-api/listing"
	"github.com/linesmerrill/legal-case-api/models"
)

var encoder = form.NewEncoder()

// Attachment is one document uploaded with a new case
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader

	// Type, Title and Description end up on the stored models.Document
	Type        string
	Title       string
	Description string
}

// NewCase is everything the intake wizard submits in one request
type NewCase struct {
	Case        models.Case
	Attachments []Attachment
}

// caseFields is the flat multipart shape of a new case
type caseFields struct {
	District      string `form:"district"`
	Taluk         string `form:"taluk"`
	Court         string `form:"court"`
	CaseType      string `form:"caseType"`
	Subject       string `form:"subject"`
	Description   string `form:"description,omitempty"`
	CaseStatus    string `form:"caseStatus,omitempty"`
	Name          string `form:"name"`
	Email         string `form:"email,omitempty"`
	Phone         string `form:"phone"`
	Address       string `form:"address"`
	IDProofType   string `form:"idProofType"`
	IDProofNumber string `form:"idProofNumber"`
	HearingDate   string `form:"hearingDate,omitempty"`
	ActsSections  string `form:"actsSections,omitempty"`
}

func fieldsOf(c models.Case) (caseFields, error) {
	f := caseFields{
		District:    c.District,
		Taluk:       c.Taluk,
		Court:       c.Court,
		CaseType:    string(c.CaseType),
		Subject:     c.Subject,
		Description: c.Description,
		CaseStatus:  string(c.CaseStatus),
	}
	if cd := c.ClientDetails; cd != nil {
		f.Name = cd.Name
		f.Email = cd.Email
		f.Phone = cd.Phone
		f.Address = cd.Address
		f.IDProofType = cd.IDProofType
		f.IDProofNumber = cd.IDProofNumber
		if cd.HearingDate != nil {
			f.HearingDate = cd.HearingDate.Format(models.DateLayout)
		}
	}
	if len(c.ActsSections) > 0 {
		b, err := json.Marshal(c.ActsSections)
		if err != nil {
			return f, err
		}
		f.ActsSections = string(b)
	}
	return f, nil
}

// encodeNewCase writes nc as the multipart body accepted by POST /api/cases
func encodeNewCase(nc NewCase) (*bytes.Buffer, string, error) {
	fields, err := fieldsOf(nc.Case)
	if err != nil {
		return nil, "", err
	}
	values, err := encoder.Encode(fields)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for key, vs := range values {
		for _, v := range vs {
			if err := mw.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}
	for i, a := range nc.Attachments {
		meta := map[string]string{
			fmt.Sprintf("docType_documents_%d", i):  a.Type,
			fmt.Sprintf("docTitle_documents_%d", i): a.Title,
			fmt.Sprintf("docDesc_documents_%d", i):  a.Description,
		}
		for key, v := range meta {
			if v == "" {
				continue
			}
			if err := mw.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="documents"; filename=%q`, a.FileName))
		h.Set("Content-Type", a.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, a.Body); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", a.FileName, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// ListCases returns every case, newest first
func (c *Client) ListCases(ctx context.Context) ([]models.Case, error) {
	var cs []models.Case
	if err := c.doJSON(ctx, http.MethodGet, "/api/cases", nil, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// GetCase returns one case with its age filled in
func (c *Client) GetCase(ctx context.Context, id string) (*models.Case, error) {
	var out models.Case
	if err := c.doJSON(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCase submits nc as one multipart request and returns the stored case
// with its assigned number
func (c *Client) CreateCase(ctx context.Context, nc NewCase) (*models.Case, error) {
	body, contentType, err := encodeNewCase(nc)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/cases", body, contentType)
	if err != nil {
		return nil, err
	}
	var out models.CaseCreatedResponse
	if err := c.decode(req, &out); err != nil {
		return nil, err
	}
	return &out.Case, nil
}

// UpdateCase replaces the editable fields of a case. The server keeps the
// case number and creation data no matter what cs carries.
func (c *Client) UpdateCase(ctx context.Context, id string, cs models.Case) (*models.Case, error) {
	var out models.Case
	if err := c.doJSON(ctx, http.MethodPut, "/api/cases/"+url.PathEscape(id), cs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchHearing sets the status and hearing date of a case. A nil hearing
// clears the date.
func (c *Client) PatchHearing(ctx context.Context, id string, hearing *time.Time, status models.CaseStatus) (*models.Case, error) {
	patch := models.HearingPatch{CaseStatus: status}
	date := ""
	if hearing != nil {
		date = hearing.Format(models.DateLayout)
	}
	patch.HearingDate = &date

	var out models.Case
	if err := c.doJSON(ctx, http.MethodPatch, "/api/cases/"+url.PathEscape(id)+"/hearing", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCase removes a case
func (c *Client) DeleteCase(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/cases/"+url.PathEscape(id), nil, nil)
}

// UpcomingHearings returns the hearing alerts computed by the server
func (c *Client) UpcomingHearings(ctx context.Context) ([]models.HearingAlert, error) {
	var alerts []models.HearingAlert
	if err := c.doJSON(ctx, http.MethodGet, "/api/cases/hearings/upcoming", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ExportCases streams the spreadsheet of cases matching f into w
func (c *Client) ExportCases(ctx context.Context, f listing.Filter, w io.Writer) error {
	values, err := encoder.Encode(f)
	if err != nil {
		return err
	}
	path := "/api/cases/export"
	if q := values.Encode(); q != "" {
		path += "?" + q
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
