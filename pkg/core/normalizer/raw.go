package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Number is a loosely typed numeric field. It accepts JSON numbers, numeric strings,
// blanks and nulls. Anything that is not a number reads as 0.
type Number struct {
	raw string
}

// NumberOf returns a Number holding n
func NumberOf(n int) Number {
	return Number{raw: strconv.Itoa(n)}
}

// Set reports whether a non-blank value was supplied
func (n Number) Set() bool {
	return n.raw != ""
}

// Int returns the value as an int. Fractions are truncated. Non-numeric values and
// values outside the int range are 0.
func (n Number) Int() int {
	if n.raw == "" {
		return 0
	}
	if i, err := strconv.Atoi(n.raw); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0
	}
	return int(f)
}

func (n *Number) UnmarshalText(b []byte) error {
	n.raw = strings.TrimSpace(string(b))
	return nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.raw = jsonScalar(b)
	return nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	n.raw = yamlScalar(node)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw == "" {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Int())), nil
}

// Text is a loosely typed string field. Numbers and booleans are kept as their literal text,
// objects and arrays read as empty.
type Text string

func (t *Text) UnmarshalText(b []byte) error {
	*t = Text(strings.TrimSpace(string(b)))
	return nil
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(jsonScalar(b))
	return nil
}

func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	*t = Text(yamlScalar(node))
	return nil
}

func (t Text) String() string {
	return string(t)
}

// truthy interprets a stay flag: booleans, "yes", and non-zero numbers are true
func (t Text) truthy() bool {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	if s == "yes" || s == "y" {
		return true
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return false
}

// RawCapacity is one capacity record as supplied by the loader
type RawCapacity struct {
	Base          Text   `json:"base" yaml:"base" sheet:"base"`
	Seat          Text   `json:"seat" yaml:"seat" sheet:"seat"`
	StartCapacity Number `json:"startCapacity" yaml:"startCapacity" sheet:"startCapacity"`
	Incumbents    Number `json:"incumbents" yaml:"incumbents" sheet:"incumbents"`
	Target        Number `json:"target" yaml:"target" sheet:"target"`
	Delta         Number `json:"delta" yaml:"delta" sheet:"delta"`
}

// RawCapacities holds capacity records in one of two shapes: a list of records, or a map
// keyed by a composite token string such as "SEA CA" or "SEA|CA".
type RawCapacities struct {
	List  []RawCapacity
	Keyed map[string]RawCapacity

	// Malformed counts list items that could not be decoded as records
	Malformed int
}

func (c *RawCapacities) UnmarshalJSON(b []byte) error {
	*c = RawCapacities{}
	switch jsonKind(b) {
	case '[':
		list, malformed, err := decodeJSONList[RawCapacity](b)
		if err != nil {
			return fmt.Errorf("failed to decode capacity list: %w", err)
		}
		c.List, c.Malformed = list, malformed
	case '{':
		keyed, malformed, err := decodeJSONMap[RawCapacity](b)
		if err != nil {
			return fmt.Errorf("failed to decode capacity map: %w", err)
		}
		c.Keyed, c.Malformed = keyed, malformed
	case 'n':
	default:
		return fmt.Errorf("capacities must be a list or an object")
	}
	return nil
}

func (c *RawCapacities) UnmarshalYAML(node *yaml.Node) error {
	*c = RawCapacities{}
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.SequenceNode:
		c.List, c.Malformed = decodeYAMLList[RawCapacity](node)
	case yaml.MappingNode:
		c.Keyed, c.Malformed = decodeYAMLMap[RawCapacity](node)
	case yaml.ScalarNode:
		if node.ShortTag() != "!!null" {
			return fmt.Errorf("capacities must be a list or a mapping")
		}
	default:
		return fmt.Errorf("capacities must be a list or a mapping")
	}
	return nil
}

// Len returns the number of records in whichever shape was supplied
func (c RawCapacities) Len() int {
	return len(c.List) + len(c.Keyed)
}

// RawPosition is a position written either as a token string ("SEA FO") or as {base, seat}
type RawPosition struct {
	Token Text `json:"-" yaml:"-"`
	Base  Text `json:"base" yaml:"base"`
	Seat  Text `json:"seat" yaml:"seat"`
}

type rawPositionFields struct {
	Base Text `json:"base" yaml:"base"`
	Seat Text `json:"seat" yaml:"seat"`
}

func (p *RawPosition) UnmarshalText(b []byte) error {
	*p = RawPosition{Token: Text(strings.TrimSpace(string(b)))}
	return nil
}

func (p *RawPosition) UnmarshalJSON(b []byte) error {
	*p = RawPosition{}
	if jsonKind(b) == '{' {
		var fields rawPositionFields
		if err := json.Unmarshal(b, &fields); err == nil {
			p.Base, p.Seat = fields.Base, fields.Seat
		}
		return nil
	}
	p.Token = Text(jsonScalar(b))
	return nil
}

func (p *RawPosition) UnmarshalYAML(node *yaml.Node) error {
	*p = RawPosition{}
	node = resolveAlias(node)
	if node.Kind == yaml.MappingNode {
		var fields rawPositionFields
		if err := node.Decode(&fields); err == nil {
			p.Base, p.Seat = fields.Base, fields.Seat
		}
		return nil
	}
	p.Token = Text(yamlScalar(node))
	return nil
}

// RawPilot is one roster record. The current position may be given as top-level base/seat
// fields or as a nested current position.
type RawPilot struct {
	Seniority Number      `json:"seniority" yaml:"seniority" sheet:"seniority"`
	Sen       Number      `json:"sen" yaml:"sen" sheet:"sen"`
	Name      Text        `json:"name" yaml:"name" sheet:"name"`
	Base      Text        `json:"base" yaml:"base" sheet:"base"`
	Seat      Text        `json:"seat" yaml:"seat" sheet:"seat"`
	Current   RawPosition `json:"current" yaml:"current" sheet:"current"`
}

// RawRoster is the roster list. Items that are not records are counted, not fatal.
type RawRoster struct {
	Pilots    []RawPilot
	Malformed int
}

func (r *RawRoster) UnmarshalJSON(b []byte) error {
	*r = RawRoster{}
	switch jsonKind(b) {
	case '[':
		pilots, malformed, err := decodeJSONList[RawPilot](b)
		if err != nil {
			return fmt.Errorf("failed to decode roster: %w", err)
		}
		r.Pilots, r.Malformed = pilots, malformed
	case 'n':
	default:
		return fmt.Errorf("roster must be a list")
	}
	return nil
}

func (r *RawRoster) UnmarshalYAML(node *yaml.Node) error {
	*r = RawRoster{}
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.SequenceNode:
		r.Pilots, r.Malformed = decodeYAMLList[RawPilot](node)
	case yaml.ScalarNode:
		if node.ShortTag() != "!!null" {
			return fmt.Errorf("roster must be a list")
		}
	default:
		return fmt.Errorf("roster must be a list")
	}
	return nil
}

// RawPreferenceItem is a single choice: a token string ("SEA CA", or "0" for stay) or a
// structured {base, seat, stay} record
type RawPreferenceItem struct {
	Token Text `json:"-" yaml:"-"`
	Base  Text `json:"base" yaml:"base"`
	Seat  Text `json:"seat" yaml:"seat"`
	Stay  Text `json:"stay" yaml:"stay"`
}

type rawPreferenceFields struct {
	Base Text `json:"base" yaml:"base"`
	Seat Text `json:"seat" yaml:"seat"`
	Stay Text `json:"stay" yaml:"stay"`
}

func (i *RawPreferenceItem) UnmarshalJSON(b []byte) error {
	*i = RawPreferenceItem{}
	if jsonKind(b) == '{' {
		var fields rawPreferenceFields
		if err := json.Unmarshal(b, &fields); err == nil {
			i.Base, i.Seat, i.Stay = fields.Base, fields.Seat, fields.Stay
		}
		return nil
	}
	i.Token = Text(jsonScalar(b))
	return nil
}

func (i *RawPreferenceItem) UnmarshalYAML(node *yaml.Node) error {
	*i = RawPreferenceItem{}
	node = resolveAlias(node)
	if node.Kind == yaml.MappingNode {
		var fields rawPreferenceFields
		if err := node.Decode(&fields); err == nil {
			i.Base, i.Seat, i.Stay = fields.Base, fields.Seat, fields.Stay
		}
		return nil
	}
	i.Token = Text(yamlScalar(node))
	return nil
}

// RawPreferenceList is either a list of items or one delimited string ("SEA CA, LAX FO, 0")
type RawPreferenceList []RawPreferenceItem

func (l *RawPreferenceList) UnmarshalText(b []byte) error {
	*l = splitPreferenceString(string(b))
	return nil
}

func (l *RawPreferenceList) UnmarshalJSON(b []byte) error {
	*l = nil
	if jsonKind(b) == '[' {
		items, _, err := decodeJSONList[RawPreferenceItem](b)
		if err != nil {
			return err
		}
		*l = items
		return nil
	}
	*l = splitPreferenceString(jsonScalar(b))
	return nil
}

func (l *RawPreferenceList) UnmarshalYAML(node *yaml.Node) error {
	*l = nil
	node = resolveAlias(node)
	if node.Kind == yaml.SequenceNode {
		items, _ := decodeYAMLList[RawPreferenceItem](node)
		*l = items
		return nil
	}
	*l = splitPreferenceString(yamlScalar(node))
	return nil
}

func splitPreferenceString(s string) RawPreferenceList {
	var items RawPreferenceList
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, RawPreferenceItem{Token: Text(part)})
	}
	return items
}

// RawPreferenceRecord is one pilot's preference record
type RawPreferenceRecord struct {
	Sen         Number            `json:"sen" yaml:"sen" sheet:"sen"`
	Seniority   Number            `json:"seniority" yaml:"seniority" sheet:"seniority"`
	Preferences RawPreferenceList `json:"preferences" yaml:"preferences" sheet:"preferences"`
}

// UnmarshalJSON accepts a full record or, as a map value keyed by seniority, just the list
func (r *RawPreferenceRecord) UnmarshalJSON(b []byte) error {
	*r = RawPreferenceRecord{}
	if jsonKind(b) != '{' {
		return r.Preferences.UnmarshalJSON(b)
	}
	type plain RawPreferenceRecord
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = RawPreferenceRecord(p)
	return nil
}

func (r *RawPreferenceRecord) UnmarshalYAML(node *yaml.Node) error {
	*r = RawPreferenceRecord{}
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		return r.Preferences.UnmarshalYAML(node)
	}
	type plain RawPreferenceRecord
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = RawPreferenceRecord(p)
	return nil
}

// RawPreferences holds preference records either as a list or as a map keyed by seniority
type RawPreferences struct {
	List      []RawPreferenceRecord
	Keyed     map[string]RawPreferenceRecord
	Malformed int
}

func (p *RawPreferences) UnmarshalJSON(b []byte) error {
	*p = RawPreferences{}
	switch jsonKind(b) {
	case '[':
		list, malformed, err := decodeJSONList[RawPreferenceRecord](b)
		if err != nil {
			return fmt.Errorf("failed to decode preference list: %w", err)
		}
		p.List, p.Malformed = list, malformed
	case '{':
		keyed, malformed, err := decodeJSONMap[RawPreferenceRecord](b)
		if err != nil {
			return fmt.Errorf("failed to decode preference map: %w", err)
		}
		p.Keyed, p.Malformed = keyed, malformed
	case 'n':
	default:
		return fmt.Errorf("preferences must be a list or an object")
	}
	return nil
}

func (p *RawPreferences) UnmarshalYAML(node *yaml.Node) error {
	*p = RawPreferences{}
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.SequenceNode:
		p.List, p.Malformed = decodeYAMLList[RawPreferenceRecord](node)
	case yaml.MappingNode:
		p.Keyed, p.Malformed = decodeYAMLMap[RawPreferenceRecord](node)
	case yaml.ScalarNode:
		if node.ShortTag() != "!!null" {
			return fmt.Errorf("preferences must be a list or a mapping")
		}
	default:
		return fmt.Errorf("preferences must be a list or a mapping")
	}
	return nil
}

// RawInputs bundles the three raw collections
type RawInputs struct {
	Capacities  RawCapacities  `json:"capacities" yaml:"capacities"`
	Roster      RawRoster      `json:"roster" yaml:"roster"`
	Preferences RawPreferences `json:"preferences" yaml:"preferences"`
}

// jsonKind returns the first significant byte of a JSON value
func jsonKind(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 'n'
	}
	return b[0]
}

// jsonScalar renders a JSON scalar as text. Strings are unquoted, null and composites are empty.
func jsonScalar(b []byte) string {
	switch jsonKind(b) {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[', 'n':
		return ""
	}
	return strings.TrimSpace(string(bytes.TrimSpace(b)))
}

func yamlScalar(node *yaml.Node) string {
	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return ""
	}
	return strings.TrimSpace(node.Value)
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func decodeJSONList[T any](b []byte) ([]T, int, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, len(raws))
	malformed := 0
	for _, raw := range raws {
		if jsonKind(raw) != '{' && !isScalarItem[T]() {
			malformed++
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			malformed++
			continue
		}
		items = append(items, item)
	}
	return items, malformed, nil
}

func decodeJSONMap[T any](b []byte) (map[string]T, int, error) {
	var raws map[string]json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, 0, err
	}
	items := make(map[string]T, len(raws))
	malformed := 0
	for key, raw := range raws {
		if jsonKind(raw) != '{' && !isShorthandValue[T]() {
			malformed++
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			malformed++
			continue
		}
		items[key] = item
	}
	return items, malformed, nil
}

func decodeYAMLList[T any](node *yaml.Node) ([]T, int) {
	items := make([]T, 0, len(node.Content))
	malformed := 0
	for _, child := range node.Content {
		child = resolveAlias(child)
		if child.Kind != yaml.MappingNode && !isScalarItem[T]() {
			malformed++
			continue
		}
		var item T
		if err := child.Decode(&item); err != nil {
			malformed++
			continue
		}
		items = append(items, item)
	}
	return items, malformed
}

func decodeYAMLMap[T any](node *yaml.Node) (map[string]T, int) {
	items := make(map[string]T, len(node.Content)/2)
	malformed := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := yamlScalar(node.Content[i])
		value := resolveAlias(node.Content[i+1])
		if value.Kind != yaml.MappingNode && !isShorthandValue[T]() {
			malformed++
			continue
		}
		var item T
		if err := value.Decode(&item); err != nil {
			malformed++
			continue
		}
		items[key] = item
	}
	return items, malformed
}

// isScalarItem reports whether T may legitimately be written as a bare scalar in a list
func isScalarItem[T any]() bool {
	var zero T
	_, ok := any(zero).(RawPreferenceItem)
	return ok
}

// isShorthandValue reports whether a keyed map may hold T as a bare list or string
func isShorthandValue[T any]() bool {
	var zero T
	_, ok := any(zero).(RawPreferenceRecord)
	return ok
}
