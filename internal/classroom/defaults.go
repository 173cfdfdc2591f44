package classroom

import "github.com/dukerupert/classpoints/internal/model"

func defaultRules(newID func() string) []model.Rule {
	rules := []model.Rule{
		{Name: "Active participation", Points: 5, Description: "Answers questions or joins discussion in class"},
		{Name: "Homework on time", Points: 3, Description: "All homework handed in on time and up to standard"},
		{Name: "Helping classmates", Points: 2, Description: "Offers help to a classmate who is struggling"},
		{Name: "Great teamwork", Points: 10, Description: "Stands out in a group project with a clear contribution"},
		{Name: "Late to class", Points: -3, Description: "Arrives late and disrupts the lesson"},
		{Name: "Missing homework", Points: -5, Description: "Homework not handed in"},
		{Name: "Damaging property", Points: -10, Description: "Deliberately damages class or school property"},
	}
	for i := range rules {
		rules[i].ID = newID()
	}
	return rules
}

func defaultShopItems(newID func() string) []model.ShopItem {
	items := []model.ShopItem{
		{Name: "Stationery set", Description: "Pens, notebook and eraser", PointsCost: 20, Stock: 10},
		{Name: "Sticker pack", Description: "Assorted cartoon stickers", PointsCost: 10, Stock: 25},
		{Name: "Custom notebook", Description: "Notebook printed with your name or class motto", PointsCost: 30, Stock: 5},
		{Name: "Movie ticket", Description: "One cinema ticket for the weekend", PointsCost: 50, Stock: 3},
	}
	for i := range items {
		items[i].ID = newID()
	}
	return items
}
