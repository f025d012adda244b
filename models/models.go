package models

// All lists every persisted model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&UserEconomy{},
		&PointsLog{},
		&CollectionEntry{},
		&RollLog{},
		&TaskAward{},
		&Friendship{},
	}
}
