package model

import (
	"encoding/json"
	"strings"
)

type QuestionType string

const (
	TypeText         QuestionType = "TEXT"
	TypeRadio        QuestionType = "RADIO"
	TypeIntegerRange QuestionType = "INTEGER_RANGE"
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeRadio, TypeIntegerRange:
		return true
	}
	return false
}

type Survey struct {
	ID          int        `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions,omitempty"`
}

type Question struct {
	ID          int          `json:"id,omitempty"`
	SurveyID    int          `json:"-"`
	Position    int          `json:"position"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        QuestionType `json:"type"`
	Options     []string     `json:"options,omitempty"`
	IntegerLB   *int         `json:"lb,omitempty"`
	IntegerUB   *int         `json:"ub,omitempty"`
}

// questionParams is the serialized form of the type-specific question
// parameters, stored as JSON in the question.params column.
type questionParams struct {
	Options []string `json:"options,omitempty"`
	LB      *int     `json:"lb,omitempty"`
	UB      *int     `json:"ub,omitempty"`
}

// MarshalParams serializes the type-specific parameters of q.
// TEXT questions have no parameters and yield the empty string.
func (q Question) MarshalParams() (string, error) {
	var p questionParams
	switch q.Type {
	case TypeRadio:
		p.Options = q.Options
	case TypeIntegerRange:
		p.LB = q.IntegerLB
		p.UB = q.IntegerUB
	default:
		return "", nil
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// UnmarshalParams populates the type-specific fields of q from the stored
// params column. An empty string leaves them zero.
func (q *Question) UnmarshalParams(raw string) error {
	if raw == "" {
		return nil
	}

	var p questionParams
	err := json.Unmarshal([]byte(raw), &p)
	if err != nil {
		return err
	}

	q.Options = p.Options
	q.IntegerLB = p.LB
	q.IntegerUB = p.UB
	return nil
}

// SplitOptions parses the semicolon-delimited option syntax used by the
// survey builder form, e.g. "Red;Green;Blue".
func SplitOptions(raw string) []string {
	if raw == "" {
		return nil
	}

	options := strings.Split(raw, ";")
	for i, o := range options {
		options[i] = strings.TrimSpace(o)
	}
	return options
}

// ResponseSet groups the answers submitted together in one submission,
// keyed by question id.
type ResponseSet struct {
	ID      int            `json:"id"`
	Answers map[int]string `json:"answers"`
}

// Results is the aggregated answer matrix for one survey: the ordered
// question columns plus one row per response set.
type Results struct {
	Survey    Survey
	Questions []Question
	Sets      []ResponseSet
}
