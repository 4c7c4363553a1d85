package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HearingAlert describes a case whose hearing falls inside the alert window
type HearingAlert struct {
	CaseID      primitive.ObjectID `json:"caseId"`
	CaseNumber  string             `json:"caseNumber"`
	Subject     string             `json:"subject"`
	ClientName  string             `json:"clientName"`
	Court       string             `json:"court"`
	HearingDate time.Time          `json:"hearingDate"`
	DaysLeft    int                `json:"daysLeft"`
	Message     string             `json:"message"`
}

// CaseEventType names a change broadcast on the case event stream
type CaseEventType string

// Case event types
const (
	CaseCreated CaseEventType = "created"
	CaseUpdated CaseEventType = "updated"
	CaseDeleted CaseEventType = "deleted"
)

// CaseEvent is pushed to websocket subscribers whenever a case changes
type CaseEvent struct {
	Type       CaseEventType `json:"type"`
	CaseID     string        `json:"caseId"`
	CaseNumber string        `json:"caseNumber,omitempty"`
	At         time.Time     `json:"at"`
}
