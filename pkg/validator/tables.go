package validator

import "strings"

// Request parameter kinds used as the innermost key of a RequestTable.
const (
	KindParams  = "params"
	KindQuery   = "query"
	KindHeaders = "headers"
	KindBody    = "body"
)

// RequestTable maps path → method → parameter kind → schema.
type RequestTable map[string]map[string]map[string]Schema

// Lookup returns the schema for a route's parameter kind. Methods match case-insensitively.
func (t RequestTable) Lookup(path, method, kind string) (Schema, bool) {
	s, ok := t[path][strings.ToUpper(method)][kind]
	return s, ok
}

// ResponseTable maps path → method → status code → schema.
type ResponseTable map[string]map[string]map[string]Schema

// Lookup returns the schema for a response status. An exact status wins over
// a range key such as "4XX", which wins over "default".
func (t ResponseTable) Lookup(path, method, status string) (Schema, bool) {
	byStatus := t[path][strings.ToUpper(method)]
	if byStatus == nil {
		return nil, false
	}
	if s, ok := byStatus[status]; ok {
		return s, true
	}
	if len(status) == 3 {
		if s, ok := byStatus[status[:1]+"XX"]; ok {
			return s, true
		}
	}
	s, ok := byStatus["default"]
	return s, ok
}
