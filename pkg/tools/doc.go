// Package tools loads the wide tools spreadsheet and reshapes it into the
// narrow tables of the converted database.
//
// The input is a single CSV with a fixed set of typed columns (tool identity,
// platform, DOIs, code URL, description, license, added/updated dates) plus
// one boolean column per category. Loading is fail-fast: a value that cannot
// be coerced to its column's declared type aborts the conversion, there is no
// partial-row recovery.
//
// Three reshape operations derive the narrow tables:
//
//   - [Table.Tools]: fixed column projection, with the Name column renamed
//     to Tool
//   - [Table.CategoryIdx]: melt of the boolean category matrix into one row
//     per (tool, category) where the flag is true
//   - [Table.DOIIdx]: split of the semicolon-delimited DOIs field into one
//     row per value, dropping tools with no DOI
package tools
