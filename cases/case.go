package cases

import (
	"errors"
	"html"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/linesmerrill/legal-case-api/models"
)

// ErrDuplicateCaseNumber is returned when a numbering race produced a case
// number that is already stored. Creating the case again mints a fresh one.
var ErrDuplicateCaseNumber = errors.New("duplicate case number")

var strict = bluemonday.StrictPolicy()

// ApplyDefaults fills the fields a new case gets when the caller left them empty
func ApplyDefaults(c *models.Case, now time.Time) {
	if c.CaseStatus == "" {
		c.CaseStatus = models.CaseStatusSubmitted
	}
	if c.FiledDate.IsZero() {
		c.FiledDate = now
	}
	if c.Documents == nil {
		c.Documents = []models.Document{}
	}
	if c.ActsSections == nil {
		c.ActsSections = []models.ActSection{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.LastUpdated = now
}

// Sanitize strips markup from every free-text field of c
func Sanitize(c *models.Case) {
	c.District = clean(c.District)
	c.Taluk = clean(c.Taluk)
	c.Court = clean(c.Court)
	c.Subject = clean(c.Subject)
	c.Description = clean(c.Description)
	if cd := c.ClientDetails; cd != nil {
		cd.Name = clean(cd.Name)
		cd.Email = strings.TrimSpace(cd.Email)
		cd.Phone = strings.TrimSpace(cd.Phone)
		cd.Address = clean(cd.Address)
		cd.IDProofType = clean(cd.IDProofType)
		cd.IDProofNumber = strings.TrimSpace(cd.IDProofNumber)
	}
	for i := range c.ActsSections {
		c.ActsSections[i].Act = clean(c.ActsSections[i].Act)
		c.ActsSections[i].Section = clean(c.ActsSections[i].Section)
	}
	for i := range c.Documents {
		c.Documents[i].Title = clean(c.Documents[i].Title)
		c.Documents[i].Description = clean(c.Documents[i].Description)
	}
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Age is the number of whole days, rounded up, between the filed date and now
func Age(c models.Case, now time.Time) int {
	if c.FiledDate.IsZero() {
		return 0
	}
	d := now.Sub(c.FiledDate)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

// WithAge returns cs with CaseAge populated
func WithAge(cs []models.Case, now time.Time) []models.Case {
	for i := range cs {
		cs[i].CaseAge = Age(cs[i], now)
	}
	return cs
}
