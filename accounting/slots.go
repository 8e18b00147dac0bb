package accounting

import (
	"sort"
	"strconv"
	"strings"

	"spa-backoffice/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a membership session category.
type Category struct {
	Key  string
	Name string
	// session categories label their slots "<Name> Session <n>"
	session bool
}

// Categories lists the built-in categories in display order. Any other
// category found in an allotment is appended after these, sorted by key.
var Categories = []Category{
	{Key: "spa", Name: "SPA", session: true},
	{Key: "jacuzzi", Name: "Jacuzzi"},
	{Key: "hamam", Name: "Hamam"},
}

// CategoryKey lower-cases a category name and joins its words with "_".
func CategoryKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// LookupCategory resolves a category name or key. Unknown categories get a
// title-cased display name.
func LookupCategory(name string) Category {
	key := CategoryKey(name)
	for _, c := range Categories {
		if c.Key == key {
			return c
		}
	}
	// cases.Caser is stateful, so build one per call
	title := cases.Title(language.English)
	return Category{Key: key, Name: title.String(strings.ReplaceAll(key, "_", " "))}
}

func (c Category) SlotLabel(n int) string {
	if c.session {
		return c.Name + " Session " + strconv.Itoa(n)
	}
	return c.Name + " " + strconv.Itoa(n)
}

// Normalize re-keys allotments by category key. Counts for names that share a
// key are summed and negative counts read as zero.
func Normalize(a models.Allotments) map[string]int {
	out := make(map[string]int, len(a))
	for name, n := range a {
		key := CategoryKey(name)
		if key == "" {
			continue
		}
		if n < 0 {
			n = 0
		}
		out[key] += n
	}
	return out
}

func orderedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	known := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		known[c.Key] = true
		if _, ok := counts[c.Key]; ok {
			keys = append(keys, c.Key)
		}
	}
	var extra []string
	for k := range counts {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Slot is one named session unit of an entitlement.
type Slot struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// SlotList expands allotments into their ordered slots. The result depends
// only on the counts, so the same allotments always produce the same slots.
func SlotList(a models.Allotments) []Slot {
	counts := Normalize(a)
	slots := []Slot{}
	for _, key := range orderedKeys(counts) {
		cat := LookupCategory(key)
		for n := 1; n <= counts[key]; n++ {
			slots = append(slots, Slot{
				ID:    key + "_" + strconv.Itoa(n),
				Label: cat.SlotLabel(n),
				Type:  key,
			})
		}
	}
	return slots
}

// MatchUsages assigns each usage, in the given order, to at most one slot.
// A usage first claims the earliest free slot carrying its exact label and
// otherwise the earliest free slot of its category. The result holds the
// slot index per usage, or -1 when nothing was free.
func MatchUsages(slots []Slot, usages []models.ServiceUsage) []int {
	consumed := make([]bool, len(slots))
	assigned := make([]int, len(usages))
	for i, u := range usages {
		idx := -1
		for j, s := range slots {
			if !consumed[j] && s.Label == u.ServiceLabel {
				idx = j
				break
			}
		}
		if idx < 0 {
			key := CategoryKey(u.ServiceCategory)
			for j, s := range slots {
				if !consumed[j] && s.Type == key {
					idx = j
					break
				}
			}
		}
		if idx >= 0 {
			consumed[idx] = true
		}
		assigned[i] = idx
	}
	return assigned
}

// UsageCheckedMap reports, for every slot id, whether a usage occupies it.
func UsageCheckedMap(slots []Slot, usages []models.ServiceUsage) map[string]bool {
	checked := make(map[string]bool, len(slots))
	for _, s := range slots {
		checked[s.ID] = false
	}
	for _, idx := range MatchUsages(slots, usages) {
		if idx >= 0 {
			checked[slots[idx].ID] = true
		}
	}
	return checked
}

func occupiedSlots(slots []Slot, usages []models.ServiceUsage) []bool {
	occupied := make([]bool, len(slots))
	for _, idx := range MatchUsages(slots, usages) {
		if idx >= 0 {
			occupied[idx] = true
		}
	}
	return occupied
}

// SlotIndex returns the position of the slot labelled label, or -1.
func SlotIndex(slots []Slot, label string) int {
	for i, s := range slots {
		if s.Label == label {
			return i
		}
	}
	return -1
}

// FirstFreeSlot returns the earliest unoccupied slot of the given category.
func FirstFreeSlot(slots []Slot, usages []models.ServiceUsage, category string) (Slot, bool) {
	key := CategoryKey(category)
	occupied := occupiedSlots(slots, usages)
	for i, s := range slots {
		if s.Type == key && !occupied[i] {
			return s, true
		}
	}
	return Slot{}, false
}

// SortUsages orders usages by insertion: creation time, then id.
func SortUsages(usages []models.ServiceUsage) {
	sort.SliceStable(usages, func(i, j int) bool {
		a, b := usages[i], usages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
