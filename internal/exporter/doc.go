// Package exporter writes analysis snapshots for download.
//
// A snapshot is flattened into a fixed list of tables (summary KPIs, the
// category and line-of-business groups, premium banding, top advisors and
// ingestion metadata) and each table is rendered in the requested format:
//
//	JSON: the snapshot document itself, indented
//	CSV:  one block per table separated by blank lines, UTF-8 BOM prefixed
//	      for Excel compatibility
//	XLSX: one worksheet per table, built with excelize
//
// Example usage:
//
//	exp := exporter.NewExporter(cfg.Paths, logger)
//	path, err := exp.SaveFile(ctx, snapshot, exporter.FormatXLSX)
package exporter
