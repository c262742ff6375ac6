package defensio

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Status values reported in the "status" field of every result.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusPending = "pending"
)

// Status returns the "status" field, or "" if absent.
func (r Result) Status() string {
	return r.StringField("status")
}

// Message returns the "message" field, or "" if absent.
func (r Result) Message() string {
	return r.StringField("message")
}

// OK reports whether the service reported success.
func (r Result) OK() bool {
	return r.Status() == StatusSuccess
}

// StringField returns field key when it holds a string, or "".
func (r Result) StringField(key string) string {
	s, _ := r[key].(string)
	return s
}

// BoolField returns field key when it holds a boolean.
func (r Result) BoolField(key string) (value, ok bool) {
	value, ok = r[key].(bool)
	return value, ok
}

// Decode copies the result into the struct pointed to by v. Struct fields
// are matched on their `defensio` tag, and numbers are converted to the
// field's type where that is lossless or obvious (for example a JSON
// integer into a float64 field).
func (r Result) Decode(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "defensio",
		WeaklyTypedInput: true,
		DecodeHook:       stringToDateHook,
		Result:           v,
	})
	if err != nil {
		return fmt.Errorf("defensio: decode result: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("defensio: decode result: %w", err)
	}
	return nil
}

var dateType = reflect.TypeOf(Date{})

func stringToDateHook(from, to reflect.Type, data any) (any, error) {
	if to != dateType || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseDate(data.(string))
}

// User is the typed view of a GetUser result.
type User struct {
	APIVersion float64 `defensio:"api-version"`
	Status     string  `defensio:"status"`
	Message    string  `defensio:"message"`
	OwnerURL   string  `defensio:"owner-url"`
}

// Document is the typed view of a document result, as returned by
// PostDocument, GetDocument, PutDocument and asynchronous callbacks.
type Document struct {
	APIVersion     float64 `defensio:"api-version"`
	Status         string  `defensio:"status"`
	Message        string  `defensio:"message"`
	Signature      string  `defensio:"signature"`
	Allow          bool    `defensio:"allow"`
	Classification string  `defensio:"classification"`
	Spaminess      float64 `defensio:"spaminess"`
	ProfanityMatch bool    `defensio:"profanity-match"`
}

// BasicStats is the typed view of a GetBasicStats result.
type BasicStats struct {
	APIVersion     float64         `defensio:"api-version"`
	Status         string          `defensio:"status"`
	Message        string          `defensio:"message"`
	RecentAccuracy float64         `defensio:"recent-accuracy"`
	FalseNegatives int64           `defensio:"false-negatives"`
	FalsePositives int64           `defensio:"false-positives"`
	Learning       bool            `defensio:"learning"`
	LearningStatus string          `defensio:"learning-status"`
	Legitimate     LegitimateStats `defensio:"legitimate"`
	Unwanted       UnwantedStats   `defensio:"unwanted"`
}

// LegitimateStats counts documents classified as legitimate.
type LegitimateStats struct {
	Total int64 `defensio:"total"`
}

// UnwantedStats counts documents classified as unwanted.
type UnwantedStats struct {
	Total     int64 `defensio:"total"`
	Spam      int64 `defensio:"spam"`
	Malicious int64 `defensio:"malicious"`
}

// ExtendedStats is the typed view of a GetExtendedStats result.
type ExtendedStats struct {
	APIVersion float64      `defensio:"api-version"`
	Status     string       `defensio:"status"`
	Message    string       `defensio:"message"`
	Data       []StatsPoint `defensio:"data"`
}

// StatsPoint is one day of extended statistics.
type StatsPoint struct {
	Date           Date    `defensio:"date"`
	Legitimate     int64   `defensio:"legitimate"`
	Unwanted       int64   `defensio:"unwanted"`
	FalsePositives int64   `defensio:"false-positives"`
	FalseNegatives int64   `defensio:"false-negatives"`
	RecentAccuracy float64 `defensio:"recent-accuracy"`
}

// FilterResult is the typed view of a PostProfanityFilter result.
type FilterResult struct {
	APIVersion float64           `defensio:"api-version"`
	Status     string            `defensio:"status"`
	Message    string            `defensio:"message"`
	Filtered   map[string]string `defensio:"filtered"`
}
