package accounting

import (
	"errors"

	"spa-backoffice/models"
)

var (
	ErrNotMembershipPurchase = errors.New("bill is not a membership purchase")
	ErrNoRemainingSessions   = errors.New("no remaining sessions on membership")
	ErrNoFreeSlot            = errors.New("no free session slot in category")
	ErrSlotTaken             = errors.New("session slot already used")
	ErrLabelCategory         = errors.New("slot label belongs to another category")
)

// Entitlement is the derived session balance of one membership purchase.
type Entitlement struct {
	Allocated   int  `json:"allocated"`
	Used        int  `json:"used"`
	Remaining   int  `json:"remaining"`
	UnknownPlan bool `json:"unknownPlan"`
	OverUsed    bool `json:"overUsed"`
}

// FindPlan looks a plan up by normalised id.
func FindPlan(plans []models.MembershipPlan, id any) *models.MembershipPlan {
	for i := range plans {
		if SameID(plans[i].ID, id) {
			return &plans[i]
		}
	}
	return nil
}

// ResolveAllotments merges the purchase snapshot with the live plan: per
// category the snapshot count wins when positive, otherwise the plan count
// is used. Keys of the result are category keys.
func ResolveAllotments(item *models.BillItem, plan *models.MembershipPlan) models.Allotments {
	out := models.Allotments{}
	var snapshot, live map[string]int
	if item != nil {
		snapshot = Normalize(item.SessionAllotments)
	}
	if plan != nil {
		live = Normalize(plan.SessionAllotments)
	}
	for key, n := range live {
		out[key] = n
	}
	for key, n := range snapshot {
		if n > 0 {
			out[key] = n
		} else if _, ok := out[key]; !ok {
			out[key] = 0
		}
	}
	return out
}

// UsagesFor filters usages logged against the given purchase.
func UsagesFor(purchaseID any, usages []models.ServiceUsage) []models.ServiceUsage {
	var out []models.ServiceUsage
	for _, u := range usages {
		if SameID(u.MembershipPurchaseBillID, purchaseID) {
			out = append(out, u)
		}
	}
	return out
}

func entitlement(allotments models.Allotments, used int, unknownPlan bool) Entitlement {
	allocated := 0
	for _, n := range Normalize(allotments) {
		allocated += n
	}
	e := Entitlement{
		Allocated:   allocated,
		Used:        used,
		Remaining:   allocated - used,
		UnknownPlan: unknownPlan,
	}
	if e.Remaining < 0 {
		e.Remaining = 0
		e.OverUsed = true
	}
	return e
}

// EntitlementFor computes {allocated, used, remaining} for a membership
// purchase bill. A bill without a membership item has no entitlement.
func EntitlementFor(bill *models.Bill, plans []models.MembershipPlan, usages []models.ServiceUsage) Entitlement {
	if bill == nil {
		return Entitlement{}
	}
	item := bill.MembershipItem()
	if item == nil {
		return Entitlement{}
	}
	plan := FindPlan(plans, item.MembershipPlanID)
	used := len(UsagesFor(bill.ID, usages))
	return entitlement(ResolveAllotments(item, plan), used, plan == nil)
}

// Purchase is the full derived view of one membership purchase.
type Purchase struct {
	Bill        *models.Bill           `json:"bill"`
	Plan        *models.MembershipPlan `json:"plan"`
	Allotments  models.Allotments      `json:"allotments"`
	Slots       []Slot                 `json:"slots"`
	Checked     map[string]bool        `json:"checked"`
	Usages      []models.ServiceUsage  `json:"usages"`
	Assignments []int                  `json:"assignments"`
	Entitlement Entitlement            `json:"entitlement"`
	EmptyPlan   bool                   `json:"emptyPlan"`
}

// Summarize derives the slots, occupancy and entitlement of a purchase. The
// usages may contain rows of other purchases; they are filtered and put in
// insertion order first.
func Summarize(bill *models.Bill, plans []models.MembershipPlan, usages []models.ServiceUsage) (*Purchase, error) {
	item := bill.MembershipItem()
	if item == nil {
		return nil, ErrNotMembershipPurchase
	}
	plan := FindPlan(plans, item.MembershipPlanID)
	own := UsagesFor(bill.ID, usages)
	if own == nil {
		own = []models.ServiceUsage{}
	}
	SortUsages(own)

	allotments := ResolveAllotments(item, plan)
	slots := SlotList(allotments)
	return &Purchase{
		Bill:        bill,
		Plan:        plan,
		Allotments:  allotments,
		Slots:       slots,
		Checked:     UsageCheckedMap(slots, own),
		Usages:      own,
		Assignments: MatchUsages(slots, own),
		Entitlement: entitlement(allotments, len(own), plan == nil),
		EmptyPlan:   len(slots) == 0,
	}, nil
}

// Reserve checks that one more session of the category can be logged and
// returns the label to record. An empty label picks the first free slot. A
// label naming a slot must name a free slot of the same category; any other
// label is kept as free text and matched by category.
func (p *Purchase) Reserve(category, label string) (string, error) {
	if p.Entitlement.Remaining <= 0 {
		return "", ErrNoRemainingSessions
	}
	slot, ok := FirstFreeSlot(p.Slots, p.Usages, category)
	if !ok {
		return "", ErrNoFreeSlot
	}
	if label == "" {
		return slot.Label, nil
	}

	idx := SlotIndex(p.Slots, label)
	if idx < 0 {
		return label, nil
	}
	if p.Slots[idx].Type != CategoryKey(category) {
		return "", ErrLabelCategory
	}
	if occupiedSlots(p.Slots, p.Usages)[idx] {
		return "", ErrSlotTaken
	}
	return label, nil
}
