package tools

import "strings"

// Tools projects the fixed metadata columns, renaming Name to Tool.
// Row order follows the input.
func (t *Table) Tools() []Tool {
	out := make([]Tool, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, Tool{
			Tool:        row.Name,
			Platform:    row.Platform,
			Code:        row.Code,
			Description: row.Description,
			License:     row.License,
			Added:       row.Added,
			Updated:     row.Updated,
		})
	}
	return out
}

// CategoryIdx melts the boolean category matrix into one row per
// (tool, category) pair where the flag is true. Categories appear in input
// column order within each tool.
func (t *Table) CategoryIdx() []Category {
	var out []Category
	for _, row := range t.Rows {
		for _, cat := range t.Categories {
			if row.Flags[cat] {
				out = append(out, Category{Tool: row.Name, Category: cat})
			}
		}
	}
	return out
}

// DOIIdx splits each tool's semicolon-delimited DOIs field into one row per
// DOI, preserving order. Tools with an empty DOIs field produce no rows.
func (t *Table) DOIIdx() []DOI {
	var out []DOI
	for _, row := range t.Rows {
		for _, doi := range SplitDOIs(row.DOIs) {
			out = append(out, DOI{Tool: row.Name, DOI: doi})
		}
	}
	return out
}

// SplitDOIs splits a semicolon-delimited DOI field, trimming whitespace and
// dropping empty values. The split is lossless and order-preserving.
func SplitDOIs(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(field, ";") {
		if doi := strings.TrimSpace(part); doi != "" {
			out = append(out, doi)
		}
	}
	return out
}
