package csvimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/propflow/backend/internal/domain/ingestion"
)

// Recognised account columns. Other columns go to the record metadata and
// columns prefixed "source_meta_" to the source envelope metadata.
var accountColumns = map[string]bool{
	"id": true, "account_number": true, "holder_name": true, "realtor": true,
	"balance": true, "status": true, "source_system": true,
	"source_reference": true, "ingested_at": true,
}

const sourceMetaPrefix = "source_meta_"

var accountRules = []FieldRule{
	Field("id").Required().MaxLength(128).Build(),
	Field("account_number").MaxLength(64).Build(),
	Field("balance").Decimal().Build(),
}

// ReadAccountRecords parses a deposit or loan account export. Rows that fail
// validation are reported and skipped.
func ReadAccountRecords(r io.Reader) ([]ingestion.RawRecord, *ErrorCollection, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, nil, err
	}
	if missing := parser.MissingHeaders("id"); len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, nil, err
	}

	errs := NewErrorCollection(100)
	records := make([]ingestion.RawRecord, 0, len(rows))
	for _, row := range rows {
		if rowErrs := ValidateRow(row, accountRules); len(rowErrs) > 0 {
			for _, e := range rowErrs {
				errs.Add(e)
			}
			continue
		}
		records = append(records, toRawRecord(row))
	}
	return records, errs, nil
}

func toRawRecord(row *Row) ingestion.RawRecord {
	rec := ingestion.RawRecord{
		ID:              row.Get("id"),
		AccountNumber:   row.Get("account_number"),
		HolderName:      row.Get("holder_name"),
		Realtor:         row.Get("realtor"),
		Balance:         row.Get("balance"),
		Status:          row.Get("status"),
		SourceSystem:    row.Get("source_system"),
		SourceReference: row.Get("source_reference"),
		IngestedAt:      row.Get("ingested_at"),
		Metadata:        map[string]string{},
		SourceMetadata:  map[string]string{},
	}
	for column, value := range row.Data {
		if accountColumns[column] || value == "" {
			continue
		}
		if strings.HasPrefix(column, sourceMetaPrefix) {
			rec.SourceMetadata[strings.TrimPrefix(column, sourceMetaPrefix)] = value
			continue
		}
		rec.Metadata[column] = value
	}
	return rec
}
