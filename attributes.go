package keyvault

import (
	"encoding/json"
	"time"
)

// UnixTime is a time.Time that marshals to and from the Unix epoch
// seconds the vault wire format uses for nbf/exp/created/updated.
type UnixTime time.Time

// Time returns the wrapped time.Time.
func (t UnixTime) Time() time.Time { return time.Time(t) }

// IsZero reports whether the timestamp is unset.
func (t UnixTime) IsZero() bool { return time.Time(t).IsZero() }

func (t UnixTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Unix())
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var seconds int64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*t = UnixTime(time.Unix(seconds, 0).UTC())
	return nil
}

// NewUnixTime wraps a time.Time for use in attribute updates.
func NewUnixTime(t time.Time) *UnixTime {
	u := UnixTime(t)
	return &u
}

// Attributes is the metadata the vault attaches to every stored
// object.
//
// Created, Updated, and RecoveryLevel are server-assigned and ignored
// on writes. Enabled, NotBefore, and Expires are client-settable; nil
// pointers are omitted from update requests so the server keeps the
// existing values.
type Attributes struct {
	Enabled   *bool     `json:"enabled,omitempty"`
	NotBefore *UnixTime `json:"nbf,omitempty"`
	Expires   *UnixTime `json:"exp,omitempty"`
	Created   *UnixTime `json:"created,omitempty"`
	Updated   *UnixTime `json:"updated,omitempty"`

	// RecoveryLevel reflects the vault's deletion recovery level for
	// this object (e.g. "Purgeable", "Recoverable+Purgeable").
	RecoveryLevel string `json:"recoveryLevel,omitempty"`
}

// forUpdate strips server-assigned fields so they are never echoed
// back on writes.
func (a Attributes) forUpdate() Attributes {
	a.Created = nil
	a.Updated = nil
	a.RecoveryLevel = ""
	return a
}

// Bool returns a pointer to b, a convenience for Attributes.Enabled.
func Bool(b bool) *bool { return &b }
