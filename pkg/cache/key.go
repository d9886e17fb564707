package cache

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
)

// TotalResultsKey is the fixed key holding the cached upstream record count.
const TotalResultsKey = "totalResults"

// CacheKey identifies a cached upstream response by its query parameters.
type CacheKey struct {
	// Params are the query parameters sent upstream (e.g., {"resultsPerPage": "5"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Parameter names are sorted; single values encode as JSON strings and
// repeated parameters as JSON string arrays.
//
// Example:
//
//	{"resultsPerPage":"5","startIndex":"0"}
func (k CacheKey) String() string {
	names := make([]string, 0, len(k.Params))
	for name, values := range k.Params {
		if len(values) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSON(&buf, name)
		buf.WriteByte(':')

		values := k.Params[name]
		if len(values) == 1 {
			writeJSON(&buf, values[0])
		} else {
			writeJSON(&buf, values)
		}
	}
	buf.WriteByte('}')

	return buf.String()
}

// writeJSON encodes v without HTML escaping or the trailing newline
// json.Encoder appends. Strings and string slices cannot fail to encode.
func writeJSON(buf *bytes.Buffer, v any) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
