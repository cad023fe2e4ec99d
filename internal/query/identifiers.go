package query

import (
	"regexp"
	"strings"
)

// reservedWords are PostgreSQL keywords that cannot be used as bare identifiers
var reservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "asymmetric": true, "authorization": true,
	"binary": true, "both": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "constraint": true, "create": true, "cross": true,
	"current_date": true, "current_role": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "default": true,
	"deferrable": true, "desc": true, "distinct": true, "do": true, "else": true,
	"end": true, "except": true, "false": true, "for": true, "foreign": true,
	"freeze": true, "from": true, "full": true, "grant": true, "group": true,
	"having": true, "ilike": true, "in": true, "initially": true, "inner": true,
	"intersect": true, "into": true, "is": true, "isnull": true, "join": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true,
	"null": true, "offset": true, "on": true, "only": true, "or": true,
	"order": true, "outer": true, "overlaps": true, "placing": true,
	"primary": true, "references": true, "right": true, "select": true,
	"session_user": true, "similar": true, "some": true, "symmetric": true,
	"table": true, "then": true, "to": true, "trailing": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "verbose": true,
	"when": true, "where": true,
}

var tableReferencePattern = regexp.MustCompile(
	`(?i)\b(FROM|JOIN|UPDATE|INTO|TABLE)\s+([a-zA-Z_][a-zA-Z0-9_]*)\b`,
)

// NeedsQuoting reports whether identifier must be double-quoted to keep its
// spelling in PostgreSQL
func NeedsQuoting(identifier string) bool {
	return strings.ToUpper(identifier) == identifier ||
		strings.ToLower(identifier) != identifier ||
		strings.Contains(identifier, " ") ||
		strings.ContainsAny(identifier, ".-") ||
		reservedWords[strings.ToLower(identifier)]
}

// QuoteIdentifier wraps identifier in double quotes when it needs quoting
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return `"` + identifier + `"`
	}

	return identifier
}

// NormalizeQuery rewrites bare table references after FROM, JOIN, UPDATE,
// INTO and TABLE to the spelling in knownTables, quoted where required.
// The rewrite is lexical: references inside string literals are rewritten too.
func NormalizeQuery(sql string, knownTables []string) string {
	trueNames := make(map[string]string, len(knownTables))
	for _, name := range knownTables {
		trueNames[strings.ToLower(name)] = name
	}

	return tableReferencePattern.ReplaceAllStringFunc(sql, func(match string) string {
		parts := tableReferencePattern.FindStringSubmatch(match)
		keyword, table := parts[1], parts[2]

		if name, ok := trueNames[strings.ToLower(table)]; ok {
			table = name
		}

		return keyword + " " + QuoteIdentifier(table)
	})
}
