package listing

import (
	"fmt"
	"sort"
	"time"

	"github.com/linesmerrill/legal-case-api/models"
)

// AlertWindow is how far ahead a hearing raises an alert
const AlertWindow = 48 * time.Hour

// HearingStatus classifies a hearing date relative to today
type HearingStatus struct {
	Set       bool   `json:"set"`
	IsOverdue bool   `json:"isOverdue"`
	IsToday   bool   `json:"isToday"`
	Days      int    `json:"days"`
	Message   string `json:"message"`
}

// HearingStatusFor compares calendar dates only, so a hearing later today is
// "Today" and one yesterday is one day overdue whatever the time of day.
// Hearing dates are stored at UTC midnight, so their day is read in UTC and
// compared with the day of now in its own location.
func HearingStatusFor(hearing *time.Time, now time.Time) HearingStatus {
	if hearing == nil || hearing.IsZero() {
		return HearingStatus{Message: "No hearing date set"}
	}
	days := daysBetween(now, hearingDay(*hearing, now.Location()))
	switch {
	case days < 0:
		return HearingStatus{Set: true, IsOverdue: true, Days: -days, Message: fmt.Sprintf("%d days overdue", -days)}
	case days == 0:
		return HearingStatus{Set: true, IsToday: true, Message: "Today"}
	default:
		return HearingStatus{Set: true, Days: days, Message: fmt.Sprintf("%d days to hearing", days)}
	}
}

// hearingDay is the stored calendar day of a hearing, placed in loc
func hearingDay(h time.Time, loc *time.Location) time.Time {
	y, m, d := h.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func daysBetween(from, to time.Time) int {
	a := models.DateOnly(from)
	b := models.DateOnly(to)
	// round rather than truncate so DST shifts do not lose a day
	return int((b.Sub(a) + 12*time.Hour).Hours() / 24)
}

// UpcomingHearings returns alerts for hearings between now and now+AlertWindow,
// soonest first
func UpcomingHearings(cs []models.Case, now time.Time) []models.HearingAlert {
	limit := now.Add(AlertWindow)
	var alerts []models.HearingAlert
	for _, c := range cs {
		if c.ClientDetails == nil || c.ClientDetails.HearingDate == nil {
			continue
		}
		h := *c.ClientDetails.HearingDate
		if h.Before(now) || h.After(limit) {
			continue
		}
		status := HearingStatusFor(&h, now)
		alerts = append(alerts, models.HearingAlert{
			CaseID:      c.ID,
			CaseNumber:  c.CaseNumber,
			Subject:     c.Subject,
			ClientName:  c.ClientDetails.Name,
			Court:       c.Court,
			HearingDate: h,
			DaysLeft:    status.Days,
			Message:     fmt.Sprintf("Case #%s hearing on %s", c.CaseNumber, h.In(now.Location()).Format("02 Jan 2006 15:04")),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].HearingDate.Before(alerts[j].HearingDate)
	})
	return alerts
}
