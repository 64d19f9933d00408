package verifier

import (
	"fmt"
	"strings"
)

// duplicateSampleLimit bounds how many duplicate identifiers an error lists.
const duplicateSampleLimit = 10

// IndexByID maps each row's identifier to the row. Rows without an
// identifier, or identifiers repeated across rows, are a FormatError.
func IndexByID(ds *Dataset, idColumn string) (map[string]Row, error) {
	index := make(map[string]Row, len(ds.Rows))
	var dups []string

	for _, row := range ds.Rows {
		id := row[idColumn]
		if id == "" {
			return nil, &FormatError{Source: ds.Path, Reason: ErrMissingID, Detail: fmt.Sprintf("column %q", idColumn)}
		}
		if _, exists := index[id]; exists {
			dups = append(dups, id)
		}
		index[id] = row
	}

	if len(dups) > 0 {
		sample := dups
		if len(sample) > duplicateSampleLimit {
			sample = sample[:duplicateSampleLimit]
		}
		return nil, &FormatError{
			Source: ds.Path,
			Reason: ErrDuplicateIDs,
			Detail: fmt.Sprintf("showing up to %d: [%s]", duplicateSampleLimit, strings.Join(sample, ", ")),
		}
	}

	return index, nil
}
