package model

// All はマイグレーション対象のモデル一覧。
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Category{},
		&Attribute{},
		&CategoryAttribute{},
		&Product{},
		&AttributeValue{},
		&Order{},
		&OrderItem{},
		&StockMovement{},
		&Review{},
		&SelfHarvesting{},
		&SelfHarvestingVisit{},
		&AuditLog{},
	}
}
