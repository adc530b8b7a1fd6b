// Package kuid parses, renders, and rewrites catalog identities.
//
// An identity comes in two textual variants: the three-component kuid form
// and the four-component kuid2 form. Marker files declare their identity on a
// tag line such as `kuid <kuid:44:1001:2>`; Find locates that line and
// returns a Match whose byte span covers exactly the bare identity between
// the brackets. Rewriting through the Match leaves every other byte of the
// file untouched, so substituting the same identity back reproduces the
// original content.
//
// The package distinguishes two failure modes callers branch on: content with
// no tag line at all (ErrMissingIdentity) and a tag line that does not parse
// (ErrMalformedIdentity). The first tag line in the file decides the outcome;
// later lines are never consulted.
package kuid
