package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/generation"
)

// OutcomeKind tags the result of one request line.
type OutcomeKind int

// Possible outcomes of a result line
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeError
	OutcomeMalformed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged value carried by a Record. Text is set for successes,
// Err for errors and malformed results.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Record is one parsed line of a job's output artifact.
type Record struct {
	CustomID string
	Outcome  Outcome
}

type outputLine struct {
	CustomID string          `json:"custom_id"`
	Response *outputResponse `json:"response"`
	Error    json.RawMessage `json:"error"`
}

type outputResponse struct {
	StatusCode json.RawMessage `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// maxLineSize bounds a single output line; chat bodies are well below it.
const maxLineSize = 16 << 20

// ParseResults parses a downloaded output artifact. Lines that do not carry a
// custom id cannot be correlated and are counted in unreadable; their ids show
// up as missing during correlation.
func ParseResults(data []byte) (records []Record, unreadable int, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, ok := parseLine(line)
		if !ok {
			unreadable++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, unreadable, fmt.Errorf("read output artifact: %w", err)
	}
	return records, unreadable, nil
}

func parseLine(line []byte) (Record, bool) {
	var out outputLine
	if err := json.Unmarshal(line, &out); err != nil || out.CustomID == "" {
		return Record{}, false
	}

	rec := Record{CustomID: out.CustomID}
	malformed := func(reason string, err error) (Record, bool) {
		rec.Outcome = Outcome{
			Kind: OutcomeMalformed,
			Err:  &MalformedResultError{CustomID: out.CustomID, Reason: reason, Err: err},
		}
		return rec, true
	}

	if !isNull(out.Error) {
		rec.Outcome = Outcome{
			Kind: OutcomeError,
			Err:  &RecordError{CustomID: out.CustomID, Message: errorMessage(out.Error)},
		}
		return rec, true
	}

	if out.Response == nil {
		return malformed("missing response", nil)
	}

	if code, ok := statusCode(out.Response.StatusCode); !ok {
		return malformed("unreadable status code", nil)
	} else if code >= 400 {
		return malformed(fmt.Sprintf("status %d", code), nil)
	}

	body, err := responseBody(out.Response.Body)
	if err != nil {
		return malformed("unreadable body", err)
	}

	text, err := generation.DecodeChatCompletion(body)
	switch {
	case errors.Is(err, generation.ErrEmptyResponse):
		rec.Outcome = Outcome{Kind: OutcomeError, Err: err}
		return rec, true
	case err != nil:
		return malformed("invalid chat completion", err)
	}

	rec.Outcome = Outcome{Kind: OutcomeSuccess, Text: text}
	return rec, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// statusCode accepts a JSON number or a numeric string. An absent code is
// treated as success.
func statusCode(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, true
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// responseBody returns the body object, unwrapping a body embedded as a JSON string.
func responseBody(raw json.RawMessage) ([]byte, error) {
	if isNull(raw) {
		return nil, errors.New("missing body")
	}
	var embedded string
	if err := json.Unmarshal(raw, &embedded); err == nil {
		return []byte(embedded), nil
	}
	return raw, nil
}

func errorMessage(raw json.RawMessage) string {
	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
