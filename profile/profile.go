package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusCorrupt Status = "corrupt"
)

// Data is the persisted part of a profile: raw totals only, nothing derived.
type Data struct {
	Skills    map[string]float64 `json:"skills"`
	Inventory map[string]float64 `json:"inventory"`
}

type Profile struct {
	Name   string `json:"name"`
	Data   Data   `json:"data"`
	Status Status `json:"status"`
}

func (d Data) Clone() Data {
	out := Data{
		Skills:    make(map[string]float64, len(d.Skills)),
		Inventory: make(map[string]float64, len(d.Inventory)),
	}
	for k, v := range d.Skills {
		out.Skills[k] = v
	}
	for k, v := range d.Inventory {
		out.Inventory[k] = v
	}
	return out
}

// Encode serializes d as the durable record body.
func Encode(d Data) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses a durable record and checks it against the template: both
// sections must be objects whose key sets equal the template's and whose
// values are JSON numbers. Any failure wraps ErrStructuralCorruption.
func Decode(tmpl Template, raw []byte) (Data, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return Data{}, corruptf("parse record: %v", err)
	}
	if sections == nil {
		return Data{}, corruptf("record is not an object")
	}

	skills, err := decodeSection(sections, "skills", tmpl.Skills)
	if err != nil {
		return Data{}, err
	}
	inventory, err := decodeSection(sections, "inventory", tmpl.Items)
	if err != nil {
		return Data{}, err
	}
	return Data{Skills: skills, Inventory: inventory}, nil
}

// Validate applies the Decode rules to an in-memory Data.
func Validate(tmpl Template, d Data) error {
	if err := sameKeys("skills", d.Skills, tmpl.Skills); err != nil {
		return err
	}
	return sameKeys("inventory", d.Inventory, tmpl.Items)
}

// ReadRecord turns a stored record into a Profile: StatusOK with the stored
// data when it decodes, StatusCorrupt with zeroed data otherwise. The
// record itself is never rewritten here.
func ReadRecord(tmpl Template, name string, raw []byte) (Profile, error) {
	data, err := Decode(tmpl, raw)
	if err != nil {
		return Profile{Name: name, Data: tmpl.Zero(), Status: StatusCorrupt}, err
	}
	return Profile{Name: name, Data: data, Status: StatusOK}, nil
}

func decodeSection(sections map[string]json.RawMessage, key string, want []string) (map[string]float64, error) {
	rawSection, ok := sections[key]
	if !ok {
		return nil, corruptf("missing %s", key)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(rawSection, &entries); err != nil || entries == nil {
		return nil, corruptf("%s is not an object", key)
	}

	out := make(map[string]float64, len(entries))
	for name, rawValue := range entries {
		v, ok := parseNumber(rawValue)
		if !ok {
			return nil, corruptf("%s.%s is not a number", key, name)
		}
		out[name] = v
	}
	if err := sameKeys(key, out, want); err != nil {
		return nil, err
	}
	return out, nil
}

// parseNumber accepts any JSON number. Magnitudes beyond float64 are clamped
// to ±math.MaxFloat64 so the record stays usable and can be encoded again.
func parseNumber(raw json.RawMessage) (float64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, false
	}
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if math.IsInf(v, 0) {
		v = math.Copysign(math.MaxFloat64, v)
	}
	return v, true
}

func sameKeys(section string, got map[string]float64, want []string) error {
	if len(got) != len(want) {
		return corruptf("%s has %d keys, template has %d", section, len(got), len(want))
	}
	for _, k := range want {
		if _, ok := got[k]; !ok {
			return corruptf("%s missing %q", section, k)
		}
	}
	return nil
}
