package inspection

// The five fixed inspection sections every vehicle carries. Dealerships can
// define additional custom sections; those use their own keys alongside
// these.
const (
	SectionEmissions  = "emissions"
	SectionCosmetic   = "cosmetic"
	SectionMechanical = "mechanical"
	SectionCleaned    = "cleaned"
	SectionPhotos     = "photos"
)

// FixedSections lists the built-in section keys in display order.
var FixedSections = []string{
	SectionEmissions,
	SectionCosmetic,
	SectionMechanical,
	SectionCleaned,
	SectionPhotos,
}

// SectionName returns the display name for a fixed section key. Custom
// section keys are returned as-is; their display names live in dealership
// settings.
func SectionName(key string) string {
	switch key {
	case SectionEmissions:
		return "Emissions"
	case SectionCosmetic:
		return "Cosmetic"
	case SectionMechanical:
		return "Mechanical"
	case SectionCleaned:
		return "Cleaned"
	case SectionPhotos:
		return "Photos"
	default:
		return key
	}
}

// DefaultItems returns the seed checklist for a fixed section. Every item
// starts not-checked. Unknown (custom) section keys get an empty list; the
// settings subsystem supplies their items.
func DefaultItems(section string) []Item {
	var labels []string
	switch section {
	case SectionEmissions:
		labels = []string{"OBD Scan", "Exhaust System", "Emissions Test"}
	case SectionCosmetic:
		labels = []string{"Exterior Paint", "Interior Trim", "Glass & Mirrors", "Wheels & Tires"}
	case SectionMechanical:
		labels = []string{"Engine Operation", "Transmission", "Brakes", "Suspension", "Fluids"}
	case SectionCleaned:
		labels = []string{"Interior Detail", "Exterior Wash", "Engine Bay"}
	case SectionPhotos:
		labels = []string{"Exterior Photos", "Interior Photos"}
	default:
		return nil
	}

	items := make([]Item, 0, len(labels))
	for _, label := range labels {
		items = append(items, Item{
			Key:    itemKey(label),
			Label:  label,
			Rating: RatingNotChecked,
		})
	}
	return items
}

// SeedChecklist builds the initial per-section item lists for a new vehicle.
func SeedChecklist() map[string][]Item {
	checklist := make(map[string][]Item, len(FixedSections))
	for _, section := range FixedSections {
		checklist[section] = DefaultItems(section)
	}
	return checklist
}

func itemKey(label string) string {
	key := make([]rune, 0, len(label))
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z':
			key = append(key, r+('a'-'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			key = append(key, r)
		default:
			// Runs of spaces and punctuation collapse to one hyphen.
			if len(key) > 0 && key[len(key)-1] != '-' {
				key = append(key, '-')
			}
		}
	}
	// Dropped trailing punctuation leaves a dangling hyphen.
	for len(key) > 0 && key[len(key)-1] == '-' {
		key = key[:len(key)-1]
	}
	return string(key)
}
