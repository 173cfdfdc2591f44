package model

type Rule struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Points      int    `json:"points" validate:"ne=0,gte=-1000000000,lte=1000000000"`
	Description string `json:"description"`
}
