package model

type ShopItem struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	PointsCost  int    `json:"pointsCost" validate:"gte=1,lte=1000000000"`
	Stock       int    `json:"stock" validate:"gte=0"`
	ImageURL    string `json:"imageUrl"`
}
