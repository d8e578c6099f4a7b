package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Count      int
	Income     Money
	Expenses   Money // absolute value
	ByCategory []CategoryAmount
}

// Net is income minus expenses.
func (o MonthOverview) Net() Money {
	return o.Income.Sub(o.Expenses)
}
