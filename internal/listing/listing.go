// Package listing parses pipe-delimited real-estate listing input.
package listing

import (
	"fmt"
	"strconv"
	"strings"
)

const fieldCount = 4

type ParseReason string

const (
	ReasonFieldCount   ParseReason = "field_count"
	ReasonInvalidArea  ParseReason = "invalid_area"
	ReasonInvalidPrice ParseReason = "invalid_price"
)

// ParseError describes malformed user input. Line is zero-based and only
// meaningful for multi-listing input.
type ParseError struct {
	Reason ParseReason
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line+1, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line+1, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is a single listing as entered by the user. It lives only for the
// duration of one turn.
type Record struct {
	Location     string
	Area         float64
	Price        int64
	PropertyType string
}

// CacheKey is the canonical memoization key for the record. Two records that
// parse to the same fields produce the same key.
func (r Record) CacheKey() string {
	return fmt.Sprintf("%s|%g|%d|%s", r.Location, r.Area, r.Price, r.PropertyType)
}

// Parse splits raw on "|" and converts the numeric fields. Exactly four
// fields are required: location, area, price, property type. Area and price
// are validated for numeric-ness only; negative values pass through.
func Parse(raw string) (Record, error) {
	return parseLine(raw, 0)
}

// ParseAll parses one listing per non-blank line, for comparison input.
// The first malformed line aborts with a ParseError carrying its index.
func ParseAll(raw string) ([]Record, error) {
	var records []Record
	for i, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line, i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseLine(raw string, line int) (Record, error) {
	fields := strings.Split(raw, "|")
	if len(fields) != fieldCount {
		return Record{}, &ParseError{Reason: ReasonFieldCount, Line: line}
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	area, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Record{}, &ParseError{Reason: ReasonInvalidArea, Line: line, Err: err}
	}
	price, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, &ParseError{Reason: ReasonInvalidPrice, Line: line, Err: err}
	}
	return Record{
		Location:     fields[0],
		Area:         area,
		Price:        price,
		PropertyType: fields[3],
	}, nil
}
