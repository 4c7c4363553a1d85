package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/listing"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportCasesHandler writes the cases matching the search, status, type and
// court query parameters as a spreadsheet
func (c Case) ExportCasesHandler(w http.ResponseWriter, r *http.Request) {
	var filter listing.Filter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		config.ErrorStatus("failed to decode filter", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusInternalServerError, w, err)
		return
	}

	now := c.now()
	var buf bytes.Buffer
	if err := listing.Export(&buf, listing.Apply(dbResp, filter), now); err != nil {
		config.ErrorStatus("failed to export cases", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cases-%s.xlsx"`, now.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
