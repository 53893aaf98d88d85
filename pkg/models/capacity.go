package models

// Capacity describes whether a team can take another member.
// FreeSlots is nil when the team is unlimited.
type Capacity struct {
	HasRoom   bool `json:"has_room"`
	FreeSlots *int `json:"free_slots,omitempty"`
}

// CheckCapacity evaluates a team's room. A nil limit means unlimited.
func CheckCapacity(current int, limit *int) Capacity {
	if limit == nil {
		return Capacity{HasRoom: true}
	}
	free := *limit - current
	if free < 0 {
		free = 0
	}
	return Capacity{HasRoom: free > 0, FreeSlots: &free}
}
