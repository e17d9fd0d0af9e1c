package batch

// Correlation partitions the emitted custom ids of one job. Every emitted id
// lands in exactly one of Succeeded, Failed or Missing.
type Correlation struct {
	// Succeeded maps ids to the text of their successful result
	Succeeded map[string]string

	// Failed maps ids to the error or malformed outcome reported for them
	Failed map[string]error

	// Missing lists ids without any result line, in emission order
	Missing []string

	// Unexpected lists result ids that were never emitted
	Unexpected []string
}

// Correlate matches result records to emitted custom ids and computes the
// complement. Only the first record for an id is considered.
func Correlate(emitted []string, records []Record) Correlation {
	c := Correlation{
		Succeeded: make(map[string]string),
		Failed:    make(map[string]error),
	}

	known := make(map[string]struct{}, len(emitted))
	for _, id := range emitted {
		known[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := known[rec.CustomID]; !ok {
			c.Unexpected = append(c.Unexpected, rec.CustomID)
			continue
		}
		if _, dup := seen[rec.CustomID]; dup {
			continue
		}
		seen[rec.CustomID] = struct{}{}

		if rec.Outcome.Kind == OutcomeSuccess {
			c.Succeeded[rec.CustomID] = rec.Outcome.Text
		} else {
			c.Failed[rec.CustomID] = rec.Outcome.Err
		}
	}

	for _, id := range emitted {
		if _, ok := seen[id]; !ok {
			c.Missing = append(c.Missing, id)
		}
	}

	return c
}

// Resolved returns the number of emitted ids with a result line.
func (c Correlation) Resolved() int {
	return len(c.Succeeded) + len(c.Failed)
}
