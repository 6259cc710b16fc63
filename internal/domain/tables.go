package domain

var Tables = []interface{}{
	// Catalog
	&Product{},
	// Sales
	&Order{},
	&OrderItem{},
	// System
	&User{},
	&OprLog{},
}
