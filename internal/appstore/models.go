package appstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Tagged pairs a value read from the API with the entity tag returned for it.
// Writes against the same resource must present ETag as an If-Match precondition.
type Tagged[T any] struct {
	Value T
	ETag  string
}

// Edit is a mutable staging resource for pending store changes
type Edit struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// APK is one application package attached to an edit
type APK struct {
	ID          string      `json:"id"`
	VersionCode VersionCode `json:"versionCode"`
	Name        string      `json:"name,omitempty"`
}

// VersionCode is the server-assigned version identifier of an APK. The API
// returns it either as a JSON string or a number; it is kept as a decimal string.
type VersionCode string

// UnmarshalJSON accepts both "1000000" and 1000000
func (v *VersionCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode versionCode: %w", err)
		}
		*v = VersionCode(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode versionCode: %w", err)
	}
	*v = VersionCode(n.String())
	return nil
}

// Int returns the numeric value, if the code is a decimal integer
func (v VersionCode) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less orders codes numerically, falling back to string order for
// codes that are not integers.
func (v VersionCode) Less(other VersionCode) bool {
	a, aok := v.Int()
	b, bok := other.Int()
	if aok && bok {
		return a < b
	}
	if aok != bok {
		// numeric codes sort after non-numeric ones
		return !aok
	}
	return v < other
}

// Listings is the complete set of store listings of an edit, keyed by language tag
type Listings struct {
	Listings map[string]Listing `json:"listings"`
}

// Listing is the store text for one language. Fields not modelled here are
// kept as received and written back unchanged.
type Listing struct {
	Language         string
	Title            string
	FullDescription  string
	ShortDescription string
	RecentChanges    *string
	FeatureBullets   []string
	Keywords         []string

	raw map[string]json.RawMessage
}

type listingFields struct {
	Language         string   `json:"language"`
	Title            string   `json:"title"`
	FullDescription  string   `json:"fullDescription"`
	ShortDescription string   `json:"shortDescription"`
	RecentChanges    *string  `json:"recentChanges"`
	FeatureBullets   []string `json:"featureBullets"`
	Keywords         []string `json:"keywords"`
}

// UnmarshalJSON decodes the known fields and remembers the raw entry
func (l *Listing) UnmarshalJSON(data []byte) error {
	var fields listingFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = Listing{
		Language:         fields.Language,
		Title:            fields.Title,
		FullDescription:  fields.FullDescription,
		ShortDescription: fields.ShortDescription,
		RecentChanges:    fields.RecentChanges,
		FeatureBullets:   fields.FeatureBullets,
		Keywords:         fields.Keywords,
		raw:              raw,
	}
	return nil
}

// MarshalJSON writes the raw entry back with the known fields overlaid.
// A known field that was absent on read is only emitted when it is set.
func (l Listing) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(l.raw)+7)
	for k, v := range l.raw {
		out[k] = v
	}

	set := func(key string, value interface{}, zero bool) {
		if _, ok := l.raw[key]; ok || !zero {
			out[key] = value
		}
	}
	set("language", l.Language, l.Language == "")
	set("title", l.Title, l.Title == "")
	set("fullDescription", l.FullDescription, l.FullDescription == "")
	set("shortDescription", l.ShortDescription, l.ShortDescription == "")
	set("recentChanges", l.RecentChanges, l.RecentChanges == nil)
	set("featureBullets", l.FeatureBullets, l.FeatureBullets == nil)
	set("keywords", l.Keywords, l.Keywords == nil)

	return json.Marshal(out)
}

// Changelog returns the recentChanges text, or "" when unset
func (l Listing) Changelog() string {
	if l.RecentChanges == nil {
		return ""
	}
	return *l.RecentChanges
}

// WithChangelog returns a copy of the listing with recentChanges replaced
func (l Listing) WithChangelog(text string) Listing {
	l.RecentChanges = &text
	return l
}

// Image is one uploaded image asset in a listing image slot
type Image struct {
	ID string `json:"id"`
}

type imagesResponse struct {
	Images []Image `json:"images"`
}
