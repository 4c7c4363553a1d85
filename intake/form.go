// Package intake drives the multi-step case intake form: per-step field
// validation, step navigation and the final multipart submission.
package intake

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/client"
	"github.com/linesmerrill/legal-case-api/models"
	"github.com/linesmerrill/legal-case-api/storage"
)

// MaxDocuments is the most files one case may be submitted with
const MaxDocuments = 10

// ID proof types offered by the client details step
const (
	IDProofAadhar         = "Aadhar Card"
	IDProofPAN            = "PAN Card"
	IDProofVoterID        = "Voter ID"
	IDProofPassport       = "Passport"
	IDProofDrivingLicense = "Driving License"
)

// IDProofTypes lists the ID proof types in display order
var IDProofTypes = []string{IDProofAadhar, IDProofPAN, IDProofVoterID, IDProofPassport, IDProofDrivingLicense}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadharPattern = regexp.MustCompile(`^[0-9]{12}$`)
	nonDigits     = regexp.MustCompile(`\D`)
)

// filled is validation.Required for text that also rejects whitespace only
var filled = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
})

// Form is everything the wizard collects. Field names follow the case
// payload so error keys line up with the ones the API reports.
type Form struct {
	District    string          `json:"district"`
	Taluk       string          `json:"taluk"`
	Court       string          `json:"court"`
	CaseType    models.CaseType `json:"caseType"`
	Subject     string          `json:"subject"`
	Description string          `json:"description"`

	Client ClientForm `json:"clientDetails"`

	ActsSections []models.ActSection `json:"actsSections"`
	Documents    []Document          `json:"documents"`
}

// ClientForm is the client details step. HearingDate is a YYYY-MM-DD value
// and may be left empty.
type ClientForm struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	IDProofType   string `json:"idProofType"`
	IDProofNumber string `json:"idProofNumber"`
	HearingDate   string `json:"hearingDate"`
}

// Document is a file picked in the documents step. The content is held in
// memory so a failed submit can be retried without picking it again.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
	Type        string
	Title       string
	Description string
}

func (f Form) clone() Form {
	out := f
	out.ActsSections = append([]models.ActSection(nil), f.ActsSections...)
	out.Documents = append([]Document(nil), f.Documents...)
	return out
}

// Digits strips everything but 0-9 from s
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

func idKind(idType string) string {
	t := strings.ToLower(strings.TrimSpace(idType))
	switch {
	case strings.HasPrefix(t, "aadhar"), strings.HasPrefix(t, "aadhaar"):
		return IDProofAadhar
	case strings.HasPrefix(t, "pan"):
		return IDProofPAN
	}
	return ""
}

// NormalizeIDProof returns the number in its stored form: whitespace removed
// for Aadhar and PAN (PAN upper cased), trimmed otherwise
func NormalizeIDProof(idType, number string) string {
	switch idKind(idType) {
	case IDProofAadhar:
		return strings.Join(strings.Fields(number), "")
	case IDProofPAN:
		return strings.ToUpper(strings.Join(strings.Fields(number), ""))
	}
	return strings.TrimSpace(number)
}

func phoneRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if len(Digits(s)) != 10 {
		return validation.NewError("validation_phone", "must contain exactly 10 digits")
	}
	return nil
}

func idProofRule(idType string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		n := NormalizeIDProof(idType, s)
		switch idKind(idType) {
		case IDProofAadhar:
			if !aadharPattern.MatchString(n) {
				return validation.NewError("validation_aadhar", "must be 12 digits")
			}
		case IDProofPAN:
			if !panPattern.MatchString(n) {
				return validation.NewError("validation_pan", "must be 5 letters, 4 digits and 1 letter")
			}
		default:
			if len([]rune(n)) < 3 {
				return validation.NewError("validation_id_proof", "must be at least 3 characters")
			}
		}
		return nil
	}
}

func hearingRule(today time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		t, err := models.ParseDate(s, today.Location())
		if err != nil {
			return validation.NewError("validation_date", "must be a valid date")
		}
		if models.DateOnly(t.In(today.Location())).Before(models.DateOnly(today)) {
			return validation.NewError("validation_hearing_past", "must not be in the past")
		}
		return nil
	}
}

func caseTypes() []interface{} {
	out := make([]interface{}, len(models.CaseTypes))
	for i, t := range models.CaseTypes {
		out[i] = t
	}
	return out
}

func validateCaseDetails(f *Form) error {
	return validation.ValidateStruct(f,
		validation.Field(&f.District, filled),
		validation.Field(&f.Taluk, filled),
		validation.Field(&f.Court, filled),
		validation.Field(&f.CaseType, filled, validation.In(caseTypes()...).Error("must be a valid case type")),
		validation.Field(&f.Subject, filled),
	)
}

func validateClientDetails(f *Form, today time.Time) error {
	cf := &f.Client
	err := validation.ValidateStruct(cf,
		validation.Field(&cf.Name, filled),
		validation.Field(&cf.Email, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&cf.Phone, filled, validation.By(phoneRule)),
		validation.Field(&cf.Address, filled),
		validation.Field(&cf.IDProofType, filled),
		validation.Field(&cf.IDProofNumber, filled, validation.By(idProofRule(cf.IDProofType))),
		validation.Field(&cf.HearingDate, validation.By(hearingRule(today))),
	)
	if err == nil {
		return nil
	}
	return validation.Errors{"clientDetails": err}
}

func validateActs(f *Form) error {
	return validation.ValidateStruct(f,
		validation.Field(&f.ActsSections, validation.Required.Error("add at least one act and section"),
			validation.Each(validation.By(func(value interface{}) error {
				a, _ := value.(models.ActSection)
				return validation.ValidateStruct(&a,
					validation.Field(&a.Act, filled),
					validation.Field(&a.Section, filled),
				)
			}))),
	)
}

func validateDocuments(f *Form) error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Documents,
			validation.Length(0, MaxDocuments).Error(fmt.Sprintf("at most %d documents may be attached", MaxDocuments)),
			validation.Each(validation.By(func(value interface{}) error {
				d, _ := value.(Document)
				return storage.ValidateUpload(d.FileName, d.ContentType, int64(len(d.Data)))
			}))),
	)
}

// validate runs the rules of one step and returns the flattened field errors
func validate(step Step, f Form, today time.Time) map[string]string {
	var err error
	switch step {
	case StepCaseDetails:
		err = validateCaseDetails(&f)
	case StepClientDetails:
		err = validateClientDetails(&f, today)
	case StepActsSections:
		err = validateActs(&f)
	case StepDocuments:
		err = validateDocuments(&f)
	case StepReview:
	}
	if err == nil {
		return nil
	}
	return cases.Fields(err)
}

// NewCase turns a validated form into the submission payload
func (f Form) NewCase() (client.NewCase, error) {
	c := models.Case{
		District:     strings.TrimSpace(f.District),
		Taluk:        strings.TrimSpace(f.Taluk),
		Court:        strings.TrimSpace(f.Court),
		CaseType:     f.CaseType,
		Subject:      strings.TrimSpace(f.Subject),
		Description:  strings.TrimSpace(f.Description),
		ActsSections: append([]models.ActSection{}, f.ActsSections...),
		ClientDetails: &models.ClientDetails{
			Name:          strings.TrimSpace(f.Client.Name),
			Email:         strings.TrimSpace(f.Client.Email),
			Phone:         Digits(f.Client.Phone),
			Address:       strings.TrimSpace(f.Client.Address),
			IDProofType:   strings.TrimSpace(f.Client.IDProofType),
			IDProofNumber: NormalizeIDProof(f.Client.IDProofType, f.Client.IDProofNumber),
		},
	}
	if f.Client.HearingDate != "" {
		t, err := models.ParseDate(f.Client.HearingDate, time.UTC)
		if err != nil {
			return client.NewCase{}, fmt.Errorf("hearingDate: %w", err)
		}
		c.ClientDetails.HearingDate = &t
	}

	nc := client.NewCase{Case: c}
	for _, d := range f.Documents {
		nc.Attachments = append(nc.Attachments, client.Attachment{
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Size:        int64(len(d.Data)),
			Body:        bytes.NewReader(d.Data),
			Type:        d.Type,
			Title:       d.Title,
			Description: d.Description,
		})
	}
	return nc, nil
}
