package characters

import (
	"encoding/json"
	"fmt"
)

// MalformedRecordError reports a record whose counter group does not
// match the upstream data contract: the field is absent, or it lacks an
// "available" count. This indicates an unannounced schema change and is
// never silently skipped.
type MalformedRecordError struct {
	CharacterID int
	Field       string
	Err         error
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record %d: field %q: %v", e.CharacterID, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record %d: field %q has no available count", e.CharacterID, e.Field)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Shape converts raw records into the flat dataset: each counter group
// is replaced by its available count, everything else is projected down
// to the fixed column set. Pure and order-preserving; row i of the
// output corresponds to record i of the input.
func Shape(records []Character) ([]Row, error) {
	rows := make([]Row, 0, len(records))

	for _, rec := range records {
		row := Row{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
		}

		groups := []struct {
			field string
			raw   json.RawMessage
			dst   *int
		}{
			{"comics", rec.Comics, &row.Comics},
			{"series", rec.Series, &row.Series},
			{"stories", rec.Stories, &row.Stories},
			{"events", rec.Events, &row.Events},
		}

		for _, g := range groups {
			count, err := availableCount(rec.ID, g.field, g.raw)
			if err != nil {
				return nil, err
			}
			*g.dst = count
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// availableCount extracts the available count from a raw counter group.
func availableCount(id int, field string, raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, &MalformedRecordError{CharacterID: id, Field: field}
	}

	var group struct {
		Available *int `json:"available"`
	}
	if err := json.Unmarshal(raw, &group); err != nil {
		return 0, &MalformedRecordError{CharacterID: id, Field: field, Err: err}
	}
	if group.Available == nil {
		return 0, &MalformedRecordError{CharacterID: id, Field: field}
	}

	return *group.Available, nil
}
