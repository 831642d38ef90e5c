package enums

// ProductCategory is the catalog's top level clothing category.
type ProductCategory string

const (
	ProductCategoryMen         ProductCategory = "men"
	ProductCategoryWomen       ProductCategory = "women"
	ProductCategoryKids        ProductCategory = "kids"
	ProductCategoryEthnic      ProductCategory = "ethnic"
	ProductCategoryWestern     ProductCategory = "western"
	ProductCategoryFootwear    ProductCategory = "footwear"
	ProductCategoryAccessories ProductCategory = "accessories"
	ProductCategoryOther       ProductCategory = "other"
)

var productCategories = newSet("product category",
	ProductCategoryMen,
	ProductCategoryWomen,
	ProductCategoryKids,
	ProductCategoryEthnic,
	ProductCategoryWestern,
	ProductCategoryFootwear,
	ProductCategoryAccessories,
	ProductCategoryOther,
)

func (c ProductCategory) String() string { return string(c) }
func (c ProductCategory) IsValid() bool  { return productCategories.has(c) }

func ParseProductCategory(value string) (ProductCategory, error) {
	return productCategories.parse(value)
}
