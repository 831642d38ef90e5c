package models

// All lists every persisted model in dependency order. Test databases migrate
// from it; production schema comes from the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Store{},
		&Product{},
		&Bargain{},
		&BargainMessage{},
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
		&Transaction{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
