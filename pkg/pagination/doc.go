// Package pagination translates client pagination parameters into upstream
// CVE API windows.
//
// The /api/cve endpoint exposes offset-from-end pagination: the client's
// startIndex counts how many of the most recent records to skip. The
// upstream API indexes from the oldest record, so the offset is translated
// against the cached total record count:
//
//	params, err := pagination.ParseRequest(r.URL.Query())
//	window := pagination.Translate(total, params.Offset, params.ResultsPerPage)
//	body, err := upstream.Fetch(ctx, window.Values())
//
// Parameters must be non-negative base-10 integers. Absent parameters take
// their defaults (startIndex 0, resultsPerPage 10).
package pagination
