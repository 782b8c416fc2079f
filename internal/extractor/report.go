package extractor

import "math"

// Outcome is how one occurrence was resolved.
type Outcome string

const (
	OutcomeExternalized Outcome = "externalized"
	OutcomeKeptInline   Outcome = "kept_inline"
	OutcomeMalformed    Outcome = "malformed"
)

// OccurrenceRecord is the report entry for one located data URI.
type OccurrenceRecord struct {
	Index       int     `json:"index"`
	Offset      int     `json:"offset"`
	Length      int     `json:"length"`
	MIME        string  `json:"mime_type,omitempty"`
	Kind        string  `json:"type,omitempty"`
	Encoding    string  `json:"encoding,omitempty"`
	DecodedSize int64   `json:"decoded_size"`
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason,omitempty"`
	Asset       string  `json:"asset,omitempty"`
}

// AssetRecord is the report entry for one externalized occurrence.
type AssetRecord struct {
	OccurrenceIndex int    `json:"occurrence_index"`
	Kind            string `json:"type"`
	MIME            string `json:"mime_type"`
	File            string `json:"file"`
	Path            string `json:"path"`
	RelativeURL     string `json:"relative_url"`
	SizeBytes       int64  `json:"size_bytes"`
	ContentHash     string `json:"content_hash"`
	MatchPosition   int    `json:"match_position"`
	EncodedLength   int    `json:"encoded_length"`
	Reused          bool   `json:"reused,omitempty"`
}

// Report accumulates per-occurrence outcomes for one run.
type Report struct {
	Found         int
	Externalized  int
	KeptInline    int
	Malformed     int
	OriginalSize  int64
	OptimizedSize int64
	// BytesMoved is the decoded payload volume written to asset files. With
	// dedupe enabled, reused files are not counted again.
	BytesMoved int64

	Assets      []AssetRecord
	Occurrences []OccurrenceRecord

	finalized bool
}

func (r *Report) addExternalized(rec OccurrenceRecord, asset AssetRecord) {
	rec.Outcome = OutcomeExternalized
	rec.Asset = asset.RelativeURL
	r.Found++
	r.Externalized++
	if !asset.Reused {
		r.BytesMoved += asset.SizeBytes
	}
	r.Occurrences = append(r.Occurrences, rec)
	r.Assets = append(r.Assets, asset)
}

func (r *Report) addKept(rec OccurrenceRecord) {
	rec.Outcome = OutcomeKeptInline
	r.Found++
	r.KeptInline++
	r.Occurrences = append(r.Occurrences, rec)
}

func (r *Report) addMalformed(rec OccurrenceRecord, reason string) {
	rec.Outcome = OutcomeMalformed
	rec.Reason = reason
	r.Found++
	r.Malformed++
	r.Occurrences = append(r.Occurrences, rec)
}

// Finalize records the document sizes. It is called once, after every
// occurrence has been resolved.
func (r *Report) Finalize(originalSize, optimizedSize int64) {
	r.OriginalSize = originalSize
	r.OptimizedSize = optimizedSize
	r.finalized = true
}

// Finalized reports whether Finalize has been called.
func (r *Report) Finalized() bool { return r.finalized }

// BytesSaved is the document size reduction.
func (r *Report) BytesSaved() int64 { return r.OriginalSize - r.OptimizedSize }

// ReductionPercentage is (original - optimized) / original * 100, or 0 for an
// empty original.
func (r *Report) ReductionPercentage() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.OriginalSize-r.OptimizedSize) / float64(r.OriginalSize) * 100
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
