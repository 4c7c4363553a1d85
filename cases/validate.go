package cases

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/linesmerrill/legal-case-api/models"
)

// Validate checks required-field presence and enum membership on a case.
// It returns validation.Errors keyed by json field name, nested for
// clientDetails and actsSections.
func Validate(c *models.Case) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.District, validation.Required),
		validation.Field(&c.Taluk, validation.Required),
		validation.Field(&c.Court, validation.Required),
		validation.Field(&c.CaseType, validation.Required, validation.By(caseType)),
		validation.Field(&c.Subject, validation.Required),
		validation.Field(&c.CaseStatus, validation.By(caseStatus)),
		validation.Field(&c.ClientDetails, validation.Required, validation.By(clientDetails)),
		validation.Field(&c.ActsSections, validation.Each(validation.By(actSection))),
	)
}

func caseType(value interface{}) error {
	t, _ := value.(models.CaseType)
	if t == "" || t.Valid() {
		return nil
	}
	return validation.NewError("validation_case_type", fmt.Sprintf("must be one of %s", join(models.CaseTypes)))
}

func caseStatus(value interface{}) error {
	s, _ := value.(models.CaseStatus)
	if s == "" || s.Valid() {
		return nil
	}
	return validation.NewError("validation_case_status", fmt.Sprintf("must be one of %s", join(models.CaseStatuses)))
}

func clientDetails(value interface{}) error {
	cd, ok := value.(*models.ClientDetails)
	if !ok || cd == nil {
		return nil
	}
	return validation.ValidateStruct(cd,
		validation.Field(&cd.Name, validation.Required),
		validation.Field(&cd.Phone, validation.Required),
		validation.Field(&cd.Address, validation.Required),
		validation.Field(&cd.IDProofType, validation.Required),
		validation.Field(&cd.IDProofNumber, validation.Required),
	)
}

func actSection(value interface{}) error {
	a, ok := value.(models.ActSection)
	if !ok {
		return nil
	}
	return validation.ValidateStruct(&a,
		validation.Field(&a.Act, validation.Required),
		validation.Field(&a.Section, validation.Required),
	)
}

// Fields flattens a validation error into dotted field paths, e.g.
// "clientDetails.phone" or "actsSections.0.act". Errors that are not
// validation.Errors come back under the empty key.
func Fields(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := map[string]string{}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		out[""] = err.Error()
		return out
	}
	flatten("", errs, out)
	return out
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for key, err := range errs {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(path, nested, out)
			continue
		}
		out[path] = err.Error()
	}
}

// SortedFields returns the keys of a flattened error map in stable order
func SortedFields(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join[T ~string](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}
