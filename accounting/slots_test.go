package accounting

import (
	"fmt"
	"reflect"
	"testing"

	"spa-backoffice/models"
)

func labels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label
	}
	return out
}

func usage(category, label string) models.ServiceUsage {
	return models.ServiceUsage{ServiceCategory: category, ServiceLabel: label}
}

func TestSlotList(t *testing.T) {
	tests := []struct {
		name       string
		allotments models.Allotments
		wantLabels []string
		wantIDs    []string
	}{
		{
			name:       "spa jacuzzi hamam",
			allotments: models.Allotments{"SPA": 2, "Jacuzzi": 1, "Hamam": 0},
			wantLabels: []string{"SPA Session 1", "SPA Session 2", "Jacuzzi 1"},
			wantIDs:    []string{"spa_1", "spa_2", "jacuzzi_1"},
		},
		{
			name:       "lower case keys",
			allotments: models.Allotments{"hamam": 1, "spa": 1},
			wantLabels: []string{"SPA Session 1", "Hamam 1"},
			wantIDs:    []string{"spa_1", "hamam_1"},
		},
		{
			name:       "all zero",
			allotments: models.Allotments{"SPA": 0, "Jacuzzi": 0, "Hamam": 0},
			wantLabels: []string{},
			wantIDs:    []string{},
		},
		{
			name:       "nil",
			allotments: nil,
			wantLabels: []string{},
			wantIDs:    []string{},
		},
		{
			name:       "extra categories follow built-ins sorted",
			allotments: models.Allotments{"Steam Room": 1, "Hamam": 1, "body scrub": 2},
			wantLabels: []string{"Hamam 1", "Body Scrub 1", "Body Scrub 2", "Steam Room 1"},
			wantIDs:    []string{"hamam_1", "body_scrub_1", "body_scrub_2", "steam_room_1"},
		},
		{
			name:       "negative counts ignored",
			allotments: models.Allotments{"SPA": -3, "Jacuzzi": 1},
			wantLabels: []string{"Jacuzzi 1"},
			wantIDs:    []string{"jacuzzi_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := SlotList(tt.allotments)
			if got := labels(slots); !reflect.DeepEqual(got, tt.wantLabels) {
				t.Errorf("labels = %v, want %v", got, tt.wantLabels)
			}
			ids := make([]string, len(slots))
			for i, s := range slots {
				ids[i] = s.ID
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestSlotListCountsAndOrder(t *testing.T) {
	for spa := 0; spa <= 4; spa++ {
		for jac := 0; jac <= 3; jac++ {
			for ham := 0; ham <= 3; ham++ {
				a := models.Allotments{"SPA": spa, "Jacuzzi": jac, "Hamam": ham}
				slots := SlotList(a)
				if len(slots) != spa+jac+ham {
					t.Fatalf("%v: got %d slots, want %d", a, len(slots), spa+jac+ham)
				}
				var want []string
				for n := 1; n <= spa; n++ {
					want = append(want, fmt.Sprintf("SPA Session %d", n))
				}
				for n := 1; n <= jac; n++ {
					want = append(want, fmt.Sprintf("Jacuzzi %d", n))
				}
				for n := 1; n <= ham; n++ {
					want = append(want, fmt.Sprintf("Hamam %d", n))
				}
				if want == nil {
					want = []string{}
				}
				if got := labels(slots); !reflect.DeepEqual(got, want) {
					t.Fatalf("%v: labels = %v, want %v", a, got, want)
				}
				if again := SlotList(a); !reflect.DeepEqual(again, slots) {
					t.Fatalf("%v: second call differs: %v vs %v", a, again, slots)
				}
			}
		}
	}
}

func TestUsageCheckedMap(t *testing.T) {
	slots := SlotList(models.Allotments{"SPA": 2, "Jacuzzi": 1, "Hamam": 0})

	tests := []struct {
		name   string
		slots  []Slot
		usages []models.ServiceUsage
		want   map[string]bool
	}{
		{
			name:   "no usages",
			slots:  slots,
			usages: nil,
			want:   map[string]bool{"spa_1": false, "spa_2": false, "jacuzzi_1": false},
		},
		{
			name:   "exact label",
			slots:  slots,
			usages: []models.ServiceUsage{usage("SPA", "SPA Session 2")},
			want:   map[string]bool{"spa_1": false, "spa_2": true, "jacuzzi_1": false},
		},
		{
			name:   "duplicate label falls back to category",
			slots:  slots,
			usages: []models.ServiceUsage{usage("SPA", "SPA Session 1"), usage("SPA", "SPA Session 1")},
			want:   map[string]bool{"spa_1": true, "spa_2": true, "jacuzzi_1": false},
		},
		{
			name:   "category only",
			slots:  slots,
			usages: []models.ServiceUsage{usage("jacuzzi", "")},
			want:   map[string]bool{"spa_1": false, "spa_2": false, "jacuzzi_1": true},
		},
		{
			name:   "unmatched category",
			slots:  SlotList(models.Allotments{"spa": 1}),
			usages: []models.ServiceUsage{usage("Hamam", "Hamam 1")},
			want:   map[string]bool{"spa_1": false},
		},
		{
			name:  "more usages than slots",
			slots: slots,
			usages: []models.ServiceUsage{
				usage("SPA", ""), usage("SPA", ""), usage("SPA", ""),
			},
			want: map[string]bool{"spa_1": true, "spa_2": true, "jacuzzi_1": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UsageCheckedMap(tt.slots, tt.usages)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UsageCheckedMap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchUsagesNeverSharesSlot(t *testing.T) {
	slots := SlotList(models.Allotments{"SPA": 3, "Jacuzzi": 2, "Hamam": 1})
	pool := []models.ServiceUsage{
		usage("SPA", "SPA Session 1"),
		usage("SPA", "SPA Session 3"),
		usage("SPA", "Jacuzzi 1"),
		usage("Jacuzzi", ""),
		usage("Hamam", "Hamam 1"),
		usage("Hamam", "Hamam 1"),
		usage("Steam", "Steam 1"),
	}

	// every ordered selection of up to 5 rows drawn from the pool
	var walk func(prefix []models.ServiceUsage)
	walk = func(prefix []models.ServiceUsage) {
		seen := map[int]bool{}
		for i, idx := range MatchUsages(slots, prefix) {
			if idx < 0 {
				continue
			}
			if seen[idx] {
				t.Fatalf("usages %v: slot %s claimed twice (row %d)", prefix, slots[idx].ID, i)
			}
			seen[idx] = true
		}
		if len(prefix) == 5 {
			return
		}
		for _, u := range pool {
			walk(append(append([]models.ServiceUsage{}, prefix...), u))
		}
	}
	walk(nil)
}

func TestMatchUsagesLabelCrossesCategory(t *testing.T) {
	slots := SlotList(models.Allotments{"SPA": 1, "Jacuzzi": 1})
	got := MatchUsages(slots, []models.ServiceUsage{usage("SPA", "Jacuzzi 1"), usage("Jacuzzi", "")})
	if want := []int{1, -1}; !reflect.DeepEqual(got, want) {
		t.Errorf("MatchUsages() = %v, want %v", got, want)
	}
}

func TestFirstFreeSlot(t *testing.T) {
	slots := SlotList(models.Allotments{"SPA": 2, "Jacuzzi": 1})
	used := []models.ServiceUsage{usage("SPA", "SPA Session 1")}

	s, ok := FirstFreeSlot(slots, used, "SPA")
	if !ok || s.Label != "SPA Session 2" {
		t.Errorf("FirstFreeSlot(SPA) = %+v, %v", s, ok)
	}
	if _, ok := FirstFreeSlot(slots, append(used, usage("SPA", "")), "spa"); ok {
		t.Error("expected no free SPA slot")
	}
	if _, ok := FirstFreeSlot(slots, nil, "Hamam"); ok {
		t.Error("expected no Hamam slot")
	}
}

func TestLookupCategory(t *testing.T) {
	tests := []struct {
		in       string
		wantKey  string
		wantName string
	}{
		{"SPA", "spa", "SPA"},
		{" jacuzzi ", "jacuzzi", "Jacuzzi"},
		{"HAMAM", "hamam", "Hamam"},
		{"steam room", "steam_room", "Steam Room"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := LookupCategory(tt.in)
			if c.Key != tt.wantKey || c.Name != tt.wantName {
				t.Errorf("LookupCategory(%q) = %+v", tt.in, c)
			}
		})
	}
}
