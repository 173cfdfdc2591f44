package model

// Snapshot is the full-state export of a classroom.
type Snapshot struct {
	Students  []Student  `json:"students"`
	Groups    []Group    `json:"groups"`
	Rules     []Rule     `json:"pointsRules"`
	ShopItems []ShopItem `json:"shopGoods"`
}
