// Package extract rebuilds manifest headers and volume records from the
// loosely formatted text that PDF-to-text conversion produces.
//
// Header fields are resolved by ordered FieldProbe lists: a labelled pattern
// first, a positional fallback second. Volume lines are anchored on the
// <12 digits>/<4 digits> volume token and read relative to it. Sender and
// recipient spellings, material and packaging vocabularies, and marker words
// are data (Rules), loadable from a JSON document validated against an
// embedded schema.
//
// Extract never fails on content. Missing fields, empty results and guessed
// box counts become warnings returned next to the best-effort data so an
// operator can review before importing. Only an unreadable source document is
// an error (see Source).
package extract
