// Package reference classifies and enriches the publication references of
// the tools database.
//
// Classification is a pure string-pattern function over the DOI; enrichment
// resolves titles, dates and citation counts through the external lookup
// services and merges the results onto the classification table.
package reference

import "strings"

// bioRxiv and PeerJ preprints carry registered DOIs under fixed prefixes;
// arXiv entries are pseudo-DOIs containing the literal "arxiv".
const (
	bioRxivPrefix = "10.1101/"
	peerJPrefix   = "10.7287/"
)

// IsArXiv reports whether the DOI string denotes an arXiv preprint.
func IsArXiv(doi string) bool {
	return strings.Contains(doi, "arxiv")
}

// IsBioRxiv reports whether the DOI denotes a bioRxiv preprint.
func IsBioRxiv(doi string) bool {
	return strings.HasPrefix(doi, bioRxivPrefix)
}

// IsPeerJ reports whether the DOI denotes a PeerJ preprint.
func IsPeerJ(doi string) bool {
	return strings.HasPrefix(doi, peerJPrefix)
}

// IsPreprint reports whether the DOI denotes any supported preprint kind.
func IsPreprint(doi string) bool {
	return IsArXiv(doi) || IsBioRxiv(doi) || IsPeerJ(doi)
}

// Classify builds the classification flags for a DOI.
func Classify(doi string) Reference {
	r := Reference{
		DOI:     doi,
		ArXiv:   Flag(IsArXiv(doi)),
		BioRxiv: Flag(IsBioRxiv(doi)),
		PeerJ:   Flag(IsPeerJ(doi)),
	}
	r.Preprint = r.ArXiv || r.BioRxiv || r.PeerJ
	return r
}
