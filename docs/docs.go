// Package docs Legal Case API.
//
// Documentation of the Legal Case API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/legal-case-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/cases cases listCases
// Lists every case, newest first.
// responses:
//   200: casesResponse

// All cases with their age in days.
// swagger:response casesResponse
type casesResponseWrapper struct {
	// in:body
	Body []models.Case
}

// swagger:route GET /api/cases/{case_id} cases caseByID
// Gets a single case by ID.
// responses:
//   200: caseResponse
//   400: errorResponse
//   404: errorResponse

// swagger:route PUT /api/cases/{case_id} cases updateCase
// Replaces the editable fields of a case. The case number never changes.
// responses:
//   200: caseResponse
//   400: errorResponse
//   404: errorResponse

// swagger:route PATCH /api/cases/{case_id}/hearing cases updateHearing
// Sets the hearing date and status of a case.
// responses:
//   200: caseResponse
//   400: errorResponse
//   404: errorResponse

// A single case
// swagger:response caseResponse
type caseResponseWrapper struct {
	// in:body
	Body models.Case
}

// swagger:parameters caseByID updateCase updateHearing deleteCase
type caseIDParam struct {
	// in:path
	// required: true
	CaseID string `json:"case_id"`
}

// swagger:route POST /api/cases cases createCase
// Creates a case and assigns it the next case number of the year.
// responses:
//   201: caseCreatedResponse
//   400: errorResponse

// The stored case
// swagger:response caseCreatedResponse
type caseCreatedResponseWrapper struct {
	// in:body
	Body models.CaseCreatedResponse
}

// swagger:route DELETE /api/cases/{case_id} cases deleteCase
// Deletes a case. Its uploaded documents stay in storage.
// responses:
//   200: messageResponse
//   404: errorResponse

// A bare message
// swagger:response messageResponse
type messageResponseWrapper struct {
	// in:body
	Body models.MessageResponse
}

// swagger:route GET /api/cases/hearings/upcoming cases upcomingHearings
// Lists the hearings due within the next two days.
// responses:
//   200: hearingAlertsResponse

// Upcoming hearing alerts, soonest first
// swagger:response hearingAlertsResponse
type hearingAlertsResponseWrapper struct {
	// in:body
	Body []models.HearingAlert
}

// swagger:route POST /api/auth/login auth login
// Signs a user in.
// responses:
//   200: authResponse
//   401: errorResponse

// The user and a session token
// swagger:response authResponse
type authResponseWrapper struct {
	// in:body
	Body models.AuthResponse
}

// swagger:route GET /api/auth/preferences auth preferences
// Gets the interface preferences of the signed in user.
// responses:
//   200: preferencesResponse

// The stored preferences, or the defaults
// swagger:response preferencesResponse
type preferencesResponseWrapper struct {
	// in:body
	Body models.UserPreferences
}

// A failed request
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
