package models

// Requests for health HTTP endpoints. Defined in domain for consistency and reuse.

type HealthRequest struct {
	Address string `param:"address" json:"address" validate:"required,min=32,max=44"`
	Refresh bool   `query:"refresh" json:"refresh"`
}

type HistoryRequest struct {
	Address string `param:"address" json:"address" validate:"required,min=32,max=44"`
	From    string `query:"from" json:"from"`
	To      string `query:"to" json:"to"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type MarketRequest struct {
	Market string `param:"market" json:"market" validate:"required,min=32,max=44"`
}

type LiquidatableRequest struct {
	Market string `param:"market" json:"market" validate:"required,min=32,max=44"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
