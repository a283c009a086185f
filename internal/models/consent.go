package models

import (
	"fmt"
	"time"
)

// ConsentType names a data category a user can opt in to.
type ConsentType string

const (
	ConsentLocation  ConsentType = "location"
	ConsentBrowsing  ConsentType = "browsing"
	ConsentSearch    ConsentType = "search"
	ConsentPurchases ConsentType = "purchases"
)

// KnownConsentTypes lists every category the registry seeds on first launch.
var KnownConsentTypes = []ConsentType{
	ConsentLocation,
	ConsentBrowsing,
	ConsentSearch,
	ConsentPurchases,
}

// Valid reports whether t is one of KnownConsentTypes.
func (t ConsentType) Valid() bool {
	for _, k := range KnownConsentTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Granularity is the resolution at which a category is collected. It is
// independent of Consent.Enabled.
type Granularity string

const (
	GranularityPrecise     Granularity = "precise"
	GranularityApproximate Granularity = "approximate"
	GranularityNone        Granularity = "none"
)

func (g Granularity) Valid() bool {
	switch g {
	case GranularityPrecise, GranularityApproximate, GranularityNone:
		return true
	}
	return false
}

const (
	// RetentionIndefinite is the sentinel DataRetention value meaning "keep forever".
	RetentionIndefinite = 999999
	// DefaultRetentionDays is the retention a freshly seeded consent gets.
	DefaultRetentionDays = 30
)

// Consent is the per-category collection permission.
// ID and CreatedAt never change after creation; UpdatedAt strictly increases.
type Consent struct {
	ID              string      `json:"id"`
	Type            ConsentType `json:"type"`
	Enabled         bool        `json:"enabled"`
	Granularity     Granularity `json:"granularity"`
	DataRetention   int         `json:"dataRetention"`
	AllowBackground bool        `json:"allowBackground"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ConsentDraft carries the caller-chosen fields of a new consent.
type ConsentDraft struct {
	Type            ConsentType
	Enabled         bool
	Granularity     Granularity
	DataRetention   int
	AllowBackground bool
}

// DefaultConsentDraft returns the safe defaults for t: disabled, approximate,
// 30-day retention and no background collection.
func DefaultConsentDraft(t ConsentType) ConsentDraft {
	return ConsentDraft{
		Type:          t,
		Granularity:   GranularityApproximate,
		DataRetention: DefaultRetentionDays,
	}
}

// ConsentPatch is a partial update. Nil fields are left as they are.
// A consent never changes category, so Type is not patchable.
type ConsentPatch struct {
	Enabled         *bool
	Granularity     *Granularity
	DataRetention   *int
	AllowBackground *bool
}

// Apply returns a copy of c with the non-nil patch fields merged in.
func (p ConsentPatch) Apply(c Consent) Consent {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.Granularity != nil {
		c.Granularity = *p.Granularity
	}
	if p.DataRetention != nil {
		c.DataRetention = *p.DataRetention
	}
	if p.AllowBackground != nil {
		c.AllowBackground = *p.AllowBackground
	}
	return c
}

// DefaultsPatch resets every mutable field to its seeded default.
func DefaultsPatch() ConsentPatch {
	d := DefaultConsentDraft("")
	return ConsentPatch{
		Enabled:         &d.Enabled,
		Granularity:     &d.Granularity,
		DataRetention:   &d.DataRetention,
		AllowBackground: &d.AllowBackground,
	}
}

// Validate checks the fields a caller controls.
func (c Consent) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown consent type %q", c.Type)
	}
	if !c.Granularity.Valid() {
		return fmt.Errorf("unknown granularity %q", c.Granularity)
	}
	if c.DataRetention <= 0 {
		return fmt.Errorf("retention must be positive, got %d", c.DataRetention)
	}
	return nil
}

// RetentionLabel renders DataRetention for humans.
func (c Consent) RetentionLabel() string {
	if c.DataRetention == RetentionIndefinite {
		return "indefinite"
	}
	return fmt.Sprintf("%d days", c.DataRetention)
}
