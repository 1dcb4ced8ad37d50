// Package dataprocessing turns a policy export into an AnalysisSnapshot.
//
// One ingestion pass runs these stages:
//
//	CSV text / workbook → RawGrid → Schema (header row + field bindings)
//	  → PolicyRecords → active filter → Aggregator → AnalysisSnapshot
//
// The tokenizer accepts RFC 4180 quoting plus the quirks of spreadsheet
// exports (CRLF, a UTF-8 BOM, blank lines). Workbooks are read with
// excelize from their first sheet.
//
// Header resolution scans the first rows for the best header candidate and
// binds each logical field through a chain of matchers: exact, stripped,
// token subset, then substring. A pass fails with *SchemaError when a required
// field stays unbound; callers use errors.As to read the missing fields.
//
// # Usage
//
//	p := dataprocessing.NewPipeline(logger)
//	snap, err := p.IngestFile(ctx, "policies.xlsx")
//	var schemaErr *dataprocessing.SchemaError
//	if errors.As(err, &schemaErr) {
//	    fmt.Println(schemaErr.MissingNames())
//	}
//
// Pipelines are stateless and safe for concurrent use.
package dataprocessing
