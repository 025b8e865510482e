package entity

// BookSales is the per-title rollup produced by the finance aggregator.
// It is derived on every read and never persisted.
type BookSales struct {
	BookID    string  `json:"bookId,omitempty"`
	BookTitle string  `json:"bookTitle"`
	UnitsSold int     `json:"unitsSold"`
	Revenue   float64 `json:"revenue"`
}

// FinanceReport is the store-wide financial overview.
type FinanceReport struct {
	Sales          []BookSales `json:"sales"`
	TotalUnitsSold int         `json:"totalUnitsSold"`
	TotalRevenue   float64     `json:"totalRevenue"`
	TotalPostage   float64     `json:"totalPostage"`
	TotalTax       float64     `json:"totalTax"`
	NetRevenue     float64     `json:"netRevenue"`
	TaxRate        float64     `json:"taxRate"`
}
