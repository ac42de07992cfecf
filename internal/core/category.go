package core

import "strings"

// Category is a closed enumeration of expense category codes.
type Category string

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Utilities     Category = "utilities"
	Entertainment Category = "entertainment"
	Healthcare    Category = "healthcare"
	Shopping      Category = "shopping"
	Education     Category = "education"
	Tuition       Category = "tuition"
	Medicine      Category = "medicine"
	Groceries     Category = "groceries"
	Household     Category = "household"
	Other         Category = "other"
)

type categoryInfo struct {
	label string
	icon  string
}

// Declaration order is the display order.
var categoryOrder = []Category{
	Food, Transport, Utilities, Entertainment, Healthcare, Shopping,
	Education, Tuition, Medicine, Groceries, Household, Other,
}

var categoryTable = map[Category]categoryInfo{
	Food:          {label: "Ăn uống", icon: "🍲"},
	Transport:     {label: "Di chuyển", icon: "🛵"},
	Utilities:     {label: "Hóa đơn", icon: "💡"},
	Entertainment: {label: "Giải trí", icon: "🎬"},
	Healthcare:    {label: "Chăm sóc sức khỏe", icon: "🩺"},
	Shopping:      {label: "Mua sắm", icon: "🛍️"},
	Education:     {label: "Giáo dục", icon: "🎓"},
	Tuition:       {label: "Học phí", icon: "📚"},
	Medicine:      {label: "Thuốc men", icon: "💊"},
	Groceries:     {label: "Tiền chợ", icon: "🛒"},
	Household:     {label: "Nhà cửa", icon: "🏠"},
	Other:         {label: "Khác", icon: "📌"},
}

// Legacy slugs written by earlier versions of the app.
var categoryAliases = map[string]Category{
	"an-uong":   Food,
	"hoc-phi":   Tuition,
	"thuoc-men": Medicine,
	"tien-cho":  Groceries,
	"nha-cua":   Household,
	"khac":      Other,
}

// Categories returns every recognised category in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ParseCategory resolves a user or persisted value to a canonical code.
// Matching is case-insensitive and legacy aliases are accepted.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if c := Category(s); c.Valid() {
		return c, true
	}
	if c, ok := categoryAliases[s]; ok {
		return c, true
	}
	return "", false
}

func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Label returns the human-readable name, or the raw code for unknown values.
func (c Category) Label() string {
	if info, ok := categoryTable[c]; ok {
		return info.label
	}
	return string(c)
}

func (c Category) Icon() string {
	if info, ok := categoryTable[c]; ok {
		return info.icon
	}
	return categoryTable[Other].icon
}

func (c Category) String() string {
	return string(c)
}
