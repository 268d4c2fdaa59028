package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Project statuses used by the catalogue.
const (
	StatusOffPlan = "off-plan"
	StatusReady   = "ready"
)

// Project is a listing in the catalogue. Text columns are read through
// COALESCE so a NULL arrives as "".
type Project struct {
	ID             string           `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Slug           string           `json:"slug" db:"slug"`
	Location       string           `json:"location" db:"location"`
	Description    string           `json:"description" db:"description"`
	PriceFrom      string           `json:"priceFrom" db:"price_from"`
	PaymentPlan    string           `json:"paymentPlan" db:"payment_plan"`
	CompletionDate string           `json:"completionDate" db:"completion_date"`
	Status         string           `json:"status" db:"status"`
	Images         StringList       `json:"images" db:"images"`
	Amenities      StringList       `json:"amenities" db:"amenities"`
	UnitTypes      UnitTypes        `json:"unitTypes" db:"unit_types"`
	MatchScore     *int             `json:"matchScore,omitempty" db:"match_score"`
	Embedding      *pgvector.Vector `json:"-" db:"embedding"`
	DeveloperID    string           `json:"developerId,omitempty" db:"developer_id"`
	DeveloperName  string           `json:"developerName,omitempty" db:"developer_name"`
	AreaID         string           `json:"areaId,omitempty" db:"area_id"`
	AreaName       string           `json:"areaName,omitempty" db:"area_name"`
	AreaSlug       string           `json:"areaSlug,omitempty" db:"area_slug"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}

// Bedrooms returns the distinct bedroom labels of the unit types in the order
// they first appear. Unit types without a bedroom label are skipped.
func (p Project) Bedrooms() []string {
	seen := make(map[string]struct{}, len(p.UnitTypes))
	out := make([]string, 0, len(p.UnitTypes))
	for _, u := range p.UnitTypes {
		b := string(u.Bedrooms)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// TopAmenities returns at most n amenities.
func (p Project) TopAmenities(n int) []string {
	if n < 0 || len(p.Amenities) <= n {
		return p.Amenities
	}
	return p.Amenities[:n]
}

// Area is a community or district.
type Area struct {
	ID            string           `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Slug          string           `json:"slug" db:"slug"`
	Image         string           `json:"image" db:"image"`
	StartingPrice string           `json:"startingPrice" db:"starting_price"`
	ProjectCount  int              `json:"projectCount" db:"project_count"`
	Description   string           `json:"description" db:"description"`
	Embedding     *pgvector.Vector `json:"-" db:"embedding"`
}

// Developer builds projects.
type Developer struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Logo        string `json:"logo" db:"logo"`
	Description string `json:"description" db:"description"`
}

// UnitType is one row of a project's unit mix.
type UnitType struct {
	Type     FlexString `json:"type"`
	Size     FlexString `json:"size"`
	Price    FlexString `json:"price"`
	Bedrooms FlexString `json:"bedrooms,omitempty"`
}

// FlexString decodes a JSON string, number or boolean into its text form;
// null and any other shape decode to "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(b))
	case '{', '[':
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
	}
	return nil
}

// StringList is a JSON array column of strings. Malformed values (non-array
// JSON, invalid JSON) scan as an empty list; non-string elements are dropped.
type StringList []string

// Scan implements sql.Scanner interface
func (s *StringList) Scan(value interface{}) error {
	*s = StringList{}
	raw, err := columnBytes(value)
	if err != nil || raw == nil {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	for _, item := range items {
		var str string
		if json.Unmarshal(item, &str) == nil && str != "" {
			*s = append(*s, str)
		}
	}
	return nil
}

// UnitTypes is a JSON array column of UnitType records, scanned with the same
// tolerance as StringList.
type UnitTypes []UnitType

// Scan implements sql.Scanner interface
func (u *UnitTypes) Scan(value interface{}) error {
	*u = UnitTypes{}
	raw, err := columnBytes(value)
	if err != nil || raw == nil {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	for _, item := range items {
		var ut UnitType
		if json.Unmarshal(item, &ut) == nil {
			*u = append(*u, ut)
		}
	}
	return nil
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

// RankedListing is a retrieved project with its cosine similarity when it
// came from vector search.
type RankedListing struct {
	Project
	Similarity *float64 `json:"similarity,omitempty" db:"similarity"`
}
