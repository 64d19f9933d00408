package verifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Defaults for the organizer_primary split.
const (
	DefaultIDColumn    = "id"
	DefaultBlobColumn  = "organizer_primary"
	DefaultSplitPrefix = "organizer_primary_"
	DefaultMaxDiffs    = 50

	// sampleLimit bounds the missing/extra identifier samples in a Summary.
	sampleLimit = 10

	// Sentinel values reported in Diff.New.
	MarkerNonObjectBlob = "<non-object blob>"
	MarkerMissingColumn = "<missing column>"
)

// DefaultExpectedKeys are the blob keys the split columns must reproduce.
var DefaultExpectedKeys = []string{"email", "country", "lastName", "firstName", "affiliation"}

// Options controls a comparison.
type Options struct {
	MaxDiffs     int // stop collecting once this many diffs exist; < 1 means DefaultMaxDiffs
	IDColumn     string
	BlobColumn   string
	SplitPrefix  string
	ExpectedKeys []string
}

// DefaultOptions returns the options for the organizer_primary split.
func DefaultOptions() Options {
	keys := make([]string, len(DefaultExpectedKeys))
	copy(keys, DefaultExpectedKeys)
	return Options{
		MaxDiffs:     DefaultMaxDiffs,
		IDColumn:     DefaultIDColumn,
		BlobColumn:   DefaultBlobColumn,
		SplitPrefix:  DefaultSplitPrefix,
		ExpectedKeys: keys,
	}
}

// SplitColumn returns the transformed column holding blob key.
func (o Options) SplitColumn(key string) string {
	return o.SplitPrefix + key
}

// Diff is one discrepancy for an identifier/field pair.
type Diff struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Original string `json:"original"`
	New      string `json:"new"`
}

// Summary describes the overall comparison.
type Summary struct {
	OrigPath              string   `json:"orig_path"`
	NewPath               string   `json:"new_path"`
	OrigRows              int      `json:"orig_rows"`
	NewRows               int      `json:"new_rows"`
	OrigCols              int      `json:"orig_cols"`
	NewCols               int      `json:"new_cols"`
	MissingInNewCount     int      `json:"missing_in_new_count"`
	ExtraInNewCount       int      `json:"extra_in_new_count"`
	MissingInNewSample    []string `json:"missing_in_new_sample"`
	ExtraInNewSample      []string `json:"extra_in_new_sample"`
	SharedColsCompared    []string `json:"shared_cols_compared"`
	NewSplitCols          []string `json:"new_split_cols"`
	SeenBlobKeys          []string `json:"seen_blob_keys"`
	UnexpectedBlobKeyRows int      `json:"unexpected_blob_key_rows"`
}

// IDSetsDiffer reports whether any identifier is missing or extra.
func (s *Summary) IDSetsDiffer() bool {
	return s.MissingInNewCount > 0 || s.ExtraInNewCount > 0
}

// diffCollector accumulates diffs up to a cap.
type diffCollector struct {
	diffs []Diff
	max   int
}

// add records d and reports whether the cap has been reached.
func (c *diffCollector) add(d Diff) bool {
	c.diffs = append(c.diffs, d)
	return len(c.diffs) >= c.max
}

// Compare checks that updated preserves every row and non-blob value of orig
// and that its split columns reproduce orig's blob column. Malformed input
// returns a FormatError; every other discrepancy is reported as a Diff.
func Compare(orig, updated *Dataset, opts Options) (*Summary, []Diff, error) {
	if opts.MaxDiffs < 1 {
		opts.MaxDiffs = DefaultMaxDiffs
	}

	origByID, err := IndexByID(orig, opts.IDColumn)
	if err != nil {
		return nil, nil, err
	}
	newByID, err := IndexByID(updated, opts.IDColumn)
	if err != nil {
		return nil, nil, err
	}

	missing := sortedDifference(origByID, newByID)
	extra := sortedDifference(newByID, origByID)
	common := sortedIntersection(origByID, newByID)

	var splitCols []string
	for _, col := range updated.Header {
		if strings.HasPrefix(col, opts.SplitPrefix) {
			splitCols = append(splitCols, col)
		}
	}

	var sharedCols []string
	for _, col := range orig.Header {
		if col != opts.BlobColumn && updated.HasColumn(col) {
			sharedCols = append(sharedCols, col)
		}
	}

	expected := make(map[string]bool, len(opts.ExpectedKeys))
	for _, key := range opts.ExpectedKeys {
		expected[key] = true
	}

	collector := &diffCollector{max: opts.MaxDiffs}
	seenKeys := make(map[string]bool)
	unexpectedRows := 0

rows:
	for _, id := range common {
		o := origByID[id]
		n := newByID[id]

		for _, col := range sharedCols {
			ov, nv := o[col], n[col]
			if ov != nv && collector.add(Diff{ID: id, Field: col, Original: ov, New: nv}) {
				break rows
			}
		}

		blob, err := ParseBlob(o[opts.BlobColumn])
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Source = orig.Path
				fe.Detail = fmt.Sprintf("id=%s column %q", id, opts.BlobColumn)
			}
			return nil, nil, err
		}

		switch blob.Kind {
		case BlobAbsent:
			for _, key := range opts.ExpectedKeys {
				col := opts.SplitColumn(key)
				if !updated.HasColumn(col) {
					continue
				}
				if nv := n[col]; nv != "" && collector.add(Diff{ID: id, Field: col, Original: "", New: nv}) {
					break rows
				}
			}

		case BlobNonObject:
			if collector.add(Diff{ID: id, Field: opts.BlobColumn, Original: Normalize(blob.Value), New: MarkerNonObjectBlob}) {
				break rows
			}

		case BlobObject:
			hasUnexpected := false
			for key := range blob.Fields {
				seenKeys[key] = true
				if !expected[key] {
					hasUnexpected = true
				}
			}
			if hasUnexpected {
				unexpectedRows++
			}

			for _, key := range opts.ExpectedKeys {
				col := opts.SplitColumn(key)
				ov := Normalize(blob.Fields[key])
				if !updated.HasColumn(col) {
					if collector.add(Diff{ID: id, Field: col, Original: ov, New: MarkerMissingColumn}) {
						break rows
					}
					continue
				}
				if nv := n[col]; ov != nv && collector.add(Diff{ID: id, Field: col, Original: ov, New: nv}) {
					break rows
				}
			}
		}
	}

	summary := &Summary{
		OrigPath:              orig.Path,
		NewPath:               updated.Path,
		OrigRows:              len(orig.Rows),
		NewRows:               len(updated.Rows),
		OrigCols:              len(orig.Header),
		NewCols:               len(updated.Header),
		MissingInNewCount:     len(missing),
		ExtraInNewCount:       len(extra),
		MissingInNewSample:    head(missing, sampleLimit),
		ExtraInNewSample:      head(extra, sampleLimit),
		SharedColsCompared:    nonNil(sharedCols),
		NewSplitCols:          nonNil(splitCols),
		SeenBlobKeys:          sortedKeys(seenKeys),
		UnexpectedBlobKeyRows: unexpectedRows,
	}

	return summary, nonNilDiffs(collector.diffs), nil
}

func sortedDifference(a, b map[string]Row) []string {
	out := []string{}
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sortedIntersection(a, b map[string]Row) []string {
	out := []string{}
	for id := range a {
		if _, ok := b[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func head(ids []string, n int) []string {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilDiffs(d []Diff) []Diff {
	if d == nil {
		return []Diff{}
	}
	return d
}
