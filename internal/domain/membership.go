package domain

// Membership is the registry's view of a single principal
type Membership struct {
	Principal    Principal `json:"principal"`
	Member       bool      `json:"member"`
	PendingJoin  bool      `json:"pending_join"`
	PendingLeave bool      `json:"pending_leave"`
	Admin        bool      `json:"admin"`
}

// Roster is a snapshot of the whole registry
type Roster struct {
	Admin         Principal   `json:"admin"`
	Members       []Principal `json:"members"`
	PendingJoins  []Principal `json:"pending_joins"`
	PendingLeaves []Principal `json:"pending_leaves"`
}
