package model

type StockChanged struct {
	RecordID int `json:"recordId"`
	NewStock int `json:"newStock"`
}

func (e StockChanged) Type() string { return "StockChanged" }

type CartSnapshot struct {
	Items []CartItem `json:"items"`
}

func (e CartSnapshot) Type() string { return "CartSnapshot" }
