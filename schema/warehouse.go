package schema

import (
	"encoding/json"
	"strings"
)

// WarehouseSize is an ordinal T-shirt size. The zero value means unknown.
type WarehouseSize int

// Known warehouse sizes, smallest first.
const (
	SizeUnknown WarehouseSize = iota
	SizeXSmall
	SizeSmall
	SizeMedium
	SizeLarge
	SizeXLarge
	Size2XLarge
	Size3XLarge
	Size4XLarge
	Size5XLarge
	Size6XLarge
)

var sizeNames = []string{
	SizeUnknown: "",
	SizeXSmall:  "X-Small",
	SizeSmall:   "Small",
	SizeMedium:  "Medium",
	SizeLarge:   "Large",
	SizeXLarge:  "X-Large",
	Size2XLarge: "2X-Large",
	Size3XLarge: "3X-Large",
	Size4XLarge: "4X-Large",
	Size5XLarge: "5X-Large",
	Size6XLarge: "6X-Large",
}

// sizeAliases maps normalized spellings (upper case, no separators) to sizes.
var sizeAliases = map[string]WarehouseSize{
	"XSMALL":   SizeXSmall,
	"XS":       SizeXSmall,
	"SMALL":    SizeSmall,
	"S":        SizeSmall,
	"MEDIUM":   SizeMedium,
	"M":        SizeMedium,
	"LARGE":    SizeLarge,
	"L":        SizeLarge,
	"XLARGE":   SizeXLarge,
	"XL":       SizeXLarge,
	"2XLARGE":  Size2XLarge,
	"XXLARGE":  Size2XLarge,
	"2XL":      Size2XLarge,
	"3XLARGE":  Size3XLarge,
	"XXXLARGE": Size3XLarge,
	"3XL":      Size3XLarge,
	"4XLARGE":  Size4XLarge,
	"4XL":      Size4XLarge,
	"5XLARGE":  Size5XLarge,
	"5XL":      Size5XLarge,
	"6XLARGE":  Size6XLarge,
	"6XL":      Size6XLarge,
}

// ParseWarehouseSize accepts the spellings warehouse metadata views emit,
// e.g. "X-Small", "XSMALL", "2X-Large" or "X2LARGE". Unrecognized input is SizeUnknown.
func ParseWarehouseSize(s string) WarehouseSize {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	if size, ok := sizeAliases[norm]; ok {
		return size
	}
	// X2LARGE style used by some views
	if len(norm) > 2 && norm[0] == 'X' && norm[1] >= '2' && norm[1] <= '6' {
		if size, ok := sizeAliases[string(norm[1])+"X"+norm[2:]]; ok {
			return size
		}
	}
	return SizeUnknown
}

// String returns the canonical display name, or "" when unknown.
func (w WarehouseSize) String() string {
	if w < 0 || int(w) >= len(sizeNames) {
		return ""
	}
	return sizeNames[w]
}

// MarshalJSON encodes the size by name.
func (w WarehouseSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts either a size name or its ordinal.
func (w *WarehouseSize) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*w = ParseWarehouseSize(name)
		return nil
	}
	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return err
	}
	*w = WarehouseSize(ordinal)
	return nil
}
