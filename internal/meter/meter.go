// Package meter implements the dimensional instrument registry: named,
// tagged sources of numeric measurements that the push engine snapshots
// once per step.
package meter

import (
	"sort"
	"strings"
)

// Kind identifies the instrument type of a meter.
type Kind int

const (
	KindCounter Kind = iota
	KindGauge
	KindTimeGauge
	KindTimer
	KindFunctionCounter
	KindFunctionTimer
	KindSummary
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindTimeGauge:
		return "time_gauge"
	case KindTimer:
		return "timer"
	case KindFunctionCounter:
		return "function_counter"
	case KindFunctionTimer:
		return "function_timer"
	case KindSummary:
		return "summary"
	default:
		return "custom"
	}
}

// Statistic classifies a single measurement within a reading.
type Statistic int

const (
	// StatValue is an instantaneous value (gauges, custom meters).
	StatValue Statistic = iota
	// StatCount is a number of occurrences.
	StatCount
	// StatTotal is an accumulated amount or duration.
	StatTotal
	// StatMax is the maximum observed amount or duration.
	StatMax
)

func (s Statistic) String() string {
	switch s {
	case StatCount:
		return "count"
	case StatTotal:
		return "total"
	case StatMax:
		return "max"
	default:
		return "value"
	}
}

// Tag is a single dimension on a meter.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// T is shorthand for constructing a Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// ID is the identity of a meter: a name plus a sorted, key-unique tag set.
// Two meters with the same ID are the same meter.
type ID struct {
	Name string
	Tags []Tag
}

// NewID builds an ID with tags sorted by key. On duplicate keys the last
// value wins.
func NewID(name string, tags ...Tag) ID {
	if len(tags) == 0 {
		return ID{Name: name}
	}

	byKey := make(map[string]string, len(tags))
	for _, t := range tags {
		byKey[t.Key] = t.Value
	}

	unique := make([]Tag, 0, len(byKey))
	for k, v := range byKey {
		unique = append(unique, Tag{Key: k, Value: v})
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Key < unique[j].Key
	})

	return ID{Name: name, Tags: unique}
}

// key returns the registry lookup key for the ID.
func (id ID) key() string {
	if len(id.Tags) == 0 {
		return id.Name
	}

	var b strings.Builder

	b.WriteString(id.Name)

	for _, t := range id.Tags {
		b.WriteByte('|')
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}

	return b.String()
}

// Measurement is one (statistic, value) pair produced by a meter.
type Measurement struct {
	Stat  Statistic
	Value float64
}

// Reading is the snapshot of a single meter taken during one export cycle.
// Measurements are read independently; a value may change between two
// statistic reads within the same cycle.
type Reading struct {
	ID           ID
	Kind         Kind
	Unit         string
	Measurements []Measurement
}

// Meter is a registered instrument that can be read into measurements.
type Meter interface {
	ID() ID
	Kind() Kind
	Measure() []Measurement
}

// UnitSeconds is the base unit for timer-derived readings.
const UnitSeconds = "seconds"
