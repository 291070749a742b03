package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// dayFormat is the textual date layout used by the incremental feed.
const dayFormat = "02.01.2006"

// Day is a calendar date delivered as a "31.12.2020" string. The feed
// sends null for summary rows, so the field is used through a pointer.
type Day struct {
	time.Time
}

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(dayFormat))), nil
}

func (d *Day) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("date %s: %w", data, ErrMalformedField)
	}
	t, err := time.ParseInLocation(dayFormat, s, time.UTC)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, ErrMalformedField)
	}
	d.Time = t
	return nil
}

// Millis is a timestamp delivered as epoch milliseconds.
type Millis struct {
	time.Time
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, ErrMalformedField)
	}
	m.Time = time.UnixMilli(ms).UTC()
	return nil
}

// ShowFlag is the feed's display indicator: the string "x" means true,
// null means false.
type ShowFlag bool

func (f ShowFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"x"`), nil
	}
	return []byte("null"), nil
}

func (f *ShowFlag) UnmarshalJSON(data []byte) error {
	*f = ShowFlag(!bytes.Equal(data, []byte("null")))
	return nil
}

// RawDates groups the three date representations a source may supply.
type RawDates struct {
	Day   *Day    `json:"Datum"`
	Stamp *Millis `json:"Datum_neu"`
	Range *string `json:"Zeitraum"`
}

// RawCases carries the case counts of one record. Total is the cumulative
// count, Increase the day-over-day delta, Reported the count attributed to
// the record's own reporting date.
type RawCases struct {
	Total    *uint32 `json:"Fallzahl"`
	Increase *uint32 `json:"Zuwachs_Fallzahl"`
	Reported *uint32 `json:"Fälle_Meldedatum"`
}

type RawDeaths struct {
	Total    *uint32 `json:"Sterbefall"`
	Increase *uint32 `json:"Zuwachs_Sterbefall"`
}

type RawRecoveries struct {
	Total    *uint32 `json:"Genesungsfall"`
	Increase *uint32 `json:"Zuwachs_Genesung"`
}

type RawHospitalisations struct {
	Total     *uint32 `json:"Hospitalisierung"`
	Increase  *uint32 `json:"Zuwachs_Krankenhauseinweisung"`
	BedsInUse *uint32 `json:"BelegteBetten"`
}

// RawRecord is one record exactly as delivered by an upstream source.
// Different sources populate different subsets, so every numeric field is
// optional. The JSON tags are the feed layer's own (German) field names;
// the metric groups are embedded so the wire shape stays flat.
type RawRecord struct {
	ObjectID uint32 `json:"ObjectId"`
	RawDates
	Show      ShowFlag `json:"Anzeige_Indikator"`
	Incidence *float64 `json:"Inzidenz"`
	RawCases
	RawDeaths
	RawRecoveries
	RawHospitalisations
}

// FeedResponse is the envelope of the incremental feed's query endpoint.
type FeedResponse struct {
	Features []Feature `json:"features"`
}

type Feature struct {
	Attributes RawRecord `json:"attributes"`
}
