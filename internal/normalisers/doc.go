// Package normalisers provides content normalisation for ingested
// snapshots. Connectors normalise raw bytes into clean text before
// handing snapshots to the pipeline, and the delta detector canonicalises
// that text further before fingerprinting so that volatile noise
// (timestamps stamped into markup, whitespace drift) does not register
// as a content change.
package normalisers
