package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CaseType is the closed set of case classifications
type CaseType string

// Case types accepted by the cases collection
const (
	CaseTypeCivil          CaseType = "Civil"
	CaseTypeCriminal       CaseType = "Criminal"
	CaseTypeFamily         CaseType = "Family"
	CaseTypeCommercial     CaseType = "Commercial"
	CaseTypeConstitutional CaseType = "Constitutional"
	CaseTypeTax            CaseType = "Tax"
)

// CaseTypes lists every CaseType in display order
var CaseTypes = []CaseType{
	CaseTypeCivil,
	CaseTypeCriminal,
	CaseTypeFamily,
	CaseTypeCommercial,
	CaseTypeConstitutional,
	CaseTypeTax,
}

// Valid reports whether t is one of the known case types
func (t CaseType) Valid() bool {
	switch t {
	case CaseTypeCivil, CaseTypeCriminal, CaseTypeFamily, CaseTypeCommercial, CaseTypeConstitutional, CaseTypeTax:
		return true
	}
	return false
}

// CaseStatus is the closed set of lifecycle states for a case
type CaseStatus string

// Case statuses accepted by the cases collection
const (
	CaseStatusDraft       CaseStatus = "Draft"
	CaseStatusSubmitted   CaseStatus = "Submitted"
	CaseStatusUnderReview CaseStatus = "Under Review"
	CaseStatusActive      CaseStatus = "Active"
	CaseStatusClosed      CaseStatus = "Closed"
)

// CaseStatuses lists every CaseStatus in lifecycle order
var CaseStatuses = []CaseStatus{
	CaseStatusDraft,
	CaseStatusSubmitted,
	CaseStatusUnderReview,
	CaseStatusActive,
	CaseStatusClosed,
}

// Valid reports whether s is one of the known case statuses
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusDraft, CaseStatusSubmitted, CaseStatusUnderReview, CaseStatusActive, CaseStatusClosed:
		return true
	}
	return false
}

// Case holds the structure for the cases collection in mongo
type Case struct {
	ID primitive.ObjectID `json:"_id" bson:"_id"`

	// Court hierarchy
	District string `json:"district" bson:"district"`
	Taluk    string `json:"taluk" bson:"taluk"`
	Court    string `json:"court" bson:"court"`

	// Classification
	CaseType    CaseType `json:"caseType" bson:"caseType"`
	Subject     string   `json:"subject" bson:"subject"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`

	ClientDetails *ClientDetails `json:"clientDetails" bson:"clientDetails"`
	ActsSections  []ActSection   `json:"actsSections" bson:"actsSections"`
	Documents     []Document     `json:"documents" bson:"documents"`

	// Management fields
	CaseNumber     string              `json:"caseNumber" bson:"caseNumber,omitempty"`
	CaseStatus     CaseStatus          `json:"caseStatus" bson:"caseStatus"`
	FiledDate      time.Time           `json:"filedDate" bson:"filedDate"`
	AssignedLawyer *primitive.ObjectID `json:"assignedLawyer,omitempty" bson:"assignedLawyer,omitempty"`
	CreatedBy      *primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	LastUpdated    time.Time           `json:"lastUpdated" bson:"lastUpdated"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`

	// HearingReminderFor is the hearing date the last reminder email was sent for
	HearingReminderFor *time.Time `json:"-" bson:"hearingReminderFor,omitempty"`

	// CaseAge is derived on read and never persisted
	CaseAge int `json:"caseAge" bson:"-"`
}

// ClientDetails holds the client embedded in a case
type ClientDetails struct {
	Name          string     `json:"name" bson:"name"`
	Email         string     `json:"email,omitempty" bson:"email,omitempty"`
	Phone         string     `json:"phone" bson:"phone"`
	Address       string     `json:"address" bson:"address"`
	IDProofType   string     `json:"idProofType" bson:"idProofType"`
	IDProofNumber string     `json:"idProofNumber" bson:"idProofNumber"`
	HearingDate   *time.Time `json:"hearingDate,omitempty" bson:"hearingDate,omitempty"`
}

// UnmarshalJSON accepts the hearing date as a date-only string or an RFC3339
// timestamp. An absent hearingDate leaves the current value alone and null or
// "" clears it.
func (cd *ClientDetails) UnmarshalJSON(b []byte) error {
	type alias ClientDetails
	aux := struct {
		*alias
		HearingDate json.RawMessage `json:"hearingDate"`
	}{alias: (*alias)(cd)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if len(aux.HearingDate) == 0 {
		return nil
	}
	var raw *string
	if err := json.Unmarshal(aux.HearingDate, &raw); err != nil {
		return fmt.Errorf("hearingDate: %w", err)
	}
	if raw == nil || *raw == "" {
		cd.HearingDate = nil
		return nil
	}
	t, err := ParseDate(*raw, time.UTC)
	if err != nil {
		return fmt.Errorf("hearingDate: %w", err)
	}
	cd.HearingDate = &t
	return nil
}

// ActSection is one statute reference attached to a case
type ActSection struct {
	Act     string `json:"act" bson:"act"`
	Section string `json:"section" bson:"section"`
}

// Document is an uploaded attachment belonging to a case
type Document struct {
	Type        string    `json:"type" bson:"type"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	FileName    string    `json:"fileName" bson:"fileName"`
	FilePath    string    `json:"filePath" bson:"filePath"`
	UploadDate  time.Time `json:"uploadDate" bson:"uploadDate"`
}

// HearingPatch is the narrow update accepted by the hearing endpoint
type HearingPatch struct {
	HearingDate *string    `json:"hearingDate"`
	CaseStatus  CaseStatus `json:"caseStatus"`

	// HearingDateSet reports whether hearingDate was present in the payload,
	// null included. Only a present hearingDate touches the stored date.
	HearingDateSet bool `json:"-"`
}

// UnmarshalJSON tells an absent hearingDate apart from an explicit null
func (p *HearingPatch) UnmarshalJSON(b []byte) error {
	type alias HearingPatch
	aux := struct {
		*alias
		HearingDate json.RawMessage `json:"hearingDate"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.HearingDate = nil
	p.HearingDateSet = len(aux.HearingDate) > 0
	if !p.HearingDateSet {
		return nil
	}
	if err := json.Unmarshal(aux.HearingDate, &p.HearingDate); err != nil {
		return fmt.Errorf("hearingDate: %w", err)
	}
	return nil
}

// CaseCreatedResponse is returned from case creation
type CaseCreatedResponse struct {
	Message string `json:"message"`
	Case    Case   `json:"case"`
}

// MessageResponse is a bare message body
type MessageResponse struct {
	Message string `json:"message"`
}
