package model

// Unassigned is the GroupID of a student that belongs to no group.
const Unassigned = ""

type Group struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}
