package core

import "strings"

// Category is a ledger category drawn from a closed vocabulary.
type Category string

// Income categories.
const (
	CategorySalary     Category = "Gaji"
	CategoryBonus      Category = "Bonus"
	CategoryCommission Category = "Komisi"
	CategoryDividend   Category = "Dividen"
	CategoryInterest   Category = "Bunga"
	CategoryGift       Category = "Hadiah"
	CategoryInheritage Category = "Warisan"
	CategorySales      Category = "Penjualan"
	CategoryRefund     Category = "Refund"
	CategoryChange     Category = "Kembalian"
	CategoryCashback   Category = "Cashback"
)

// Expense categories.
const (
	CategoryFood          Category = "Makanan"
	CategoryTransport     Category = "Transportasi"
	CategoryReimburse     Category = "Reimburse"
	CategoryCharity       Category = "Sedekah"
	CategoryEntertainment Category = "Hiburan"
	CategoryFamilyGrowth  Category = "Pengembangan Keluarga"
	CategoryHousehold     Category = "Rumah Tangga"
	CategoryClothing      Category = "Pakaian"
	CategoryBeauty        Category = "Kecantikan"
	CategoryHealth        Category = "Kesehatan"
)

// CategoryOther is the bucket for anything outside the vocabulary.
const CategoryOther Category = "Lainnya"

var (
	IncomeCategories = []Category{
		CategorySalary, CategoryBonus, CategoryCommission, CategoryDividend,
		CategoryInterest, CategoryGift, CategoryInheritage, CategorySales,
		CategoryRefund, CategoryChange, CategoryCashback,
	}
	ExpenseCategories = []Category{
		CategoryFood, CategoryTransport, CategoryReimburse, CategoryCharity,
		CategoryEntertainment, CategoryFamilyGrowth, CategoryHousehold,
		CategoryClothing, CategoryBeauty, CategoryHealth,
	}

	categoryIndex = buildCategoryIndex()
)

func buildCategoryIndex() map[string]Category {
	idx := make(map[string]Category, len(IncomeCategories)+len(ExpenseCategories)+2)
	for _, c := range IncomeCategories {
		idx[strings.ToLower(string(c))] = c
	}
	for _, c := range ExpenseCategories {
		idx[strings.ToLower(string(c))] = c
	}
	idx[strings.ToLower(string(CategoryOther))] = CategoryOther
	// historical misspelling emitted by older prompts
	idx["rrefund"] = CategoryRefund
	return idx
}

// ParseCategory maps s onto the vocabulary, case-insensitively.
// Unknown or empty input yields CategoryOther and ok=false.
func ParseCategory(s string) (c Category, ok bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if c, found := categoryIndex[key]; found {
		return c, true
	}
	return CategoryOther, false
}

// Known reports whether c is part of the vocabulary.
func (c Category) Known() bool {
	_, ok := categoryIndex[strings.ToLower(string(c))]
	return ok
}

func (c Category) String() string {
	return string(c)
}
