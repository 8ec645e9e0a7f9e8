package bulkupload

import (
	"strconv"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Input columns understood by the processor. Other columns are carried
// through to the report untouched.
const (
	ColID                = "id"
	ColSKU               = "sku"
	ColName              = "name"
	ColCategory          = "category"
	ColBrand             = "brand"
	ColSupplier          = "supplier_name"
	ColModelName         = "model_name"
	ColCostPrice         = "cost_price"
	ColSellingPrice      = "selling_price"
	ColQuantityOnHand    = "quantity_on_hand"
	ColStatus            = "status"
	ColDescription       = "description"
	ColTags              = "tags"
	ColVariantSKU        = "variant_sku"
	ColVariantColor      = "variant_color"
	ColVariantSize       = "variant_size"
	ColVariantPrice      = "variant_price"
	ColVariantQuantity   = "variant_quantity"
	ColImageURL          = "image_url"
	ColImageAltText      = "image_alt_text"
	ColImageDisplayOrder = "image_display_order"
)

// productColumns maps input columns onto the product columns they write.
// reorder_level has no input column, so bulk uploads never touch it.
var productColumns = []struct{ input, column string }{
	{ColSKU, "sku"},
	{ColName, "name"},
	{ColModelName, "model_name"},
	{ColDescription, "description"},
	{ColCategory, "category_id"},
	{ColBrand, "brand_id"},
	{ColSupplier, "supplier_id"},
	{ColCostPrice, "cost_price"},
	{ColSellingPrice, "selling_price"},
	{ColQuantityOnHand, "quantity_on_hand"},
	{ColStatus, "status"},
	{ColTags, "tags"},
}

// ParsedRow is a row that passed schema validation. Reference ids are not
// set; the processor resolves them from the row's names.
type ParsedRow struct {
	Product model.Product
	HasID   bool
	// Columns are the product columns the input table provides. Updating
	// an existing product overwrites only these.
	Columns []string
	Variant *model.ProductVariant
	Image   *model.ProductImage
}

// ParseRow maps row onto the product schema. Empty numeric fields stay nil;
// malformed ones and unknown statuses are rejected.
func ParseRow(row Row) (*ParsedRow, error) {
	parsed := &ParsedRow{}
	p := &parsed.Product

	if raw := row.Get(ColID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation(ColID, "invalid id %q", raw)
		}
		p.ID = id
		parsed.HasID = true
	}

	p.SKU = row.Get(ColSKU)
	if p.SKU == "" {
		return nil, apperror.Validation(ColSKU, "sku is required")
	}
	p.Name = row.Get(ColName)
	if p.Name == "" {
		return nil, apperror.Validation(ColName, "name is required")
	}
	p.ModelName = row.Get(ColModelName)
	p.Description = row.Get(ColDescription)

	status, ok := model.ParseProductStatus(row.Get(ColStatus))
	if !ok {
		return nil, &apperror.InvalidEnumError{Field: ColStatus, Value: row.Get(ColStatus), Allowed: model.ProductStatuses}
	}
	p.Status = status

	var err error
	if p.CostPrice, err = optionalDecimal(row, ColCostPrice); err != nil {
		return nil, err
	}
	if p.SellingPrice, err = optionalDecimal(row, ColSellingPrice); err != nil {
		return nil, err
	}
	if p.QuantityOnHand, err = optionalInt(row, ColQuantityOnHand); err != nil {
		return nil, err
	}
	p.Tags = SplitTags(row.Get(ColTags))

	for _, pc := range productColumns {
		if row.Has(pc.input) {
			parsed.Columns = append(parsed.Columns, pc.column)
		}
	}

	if sku := row.Get(ColVariantSKU); sku != "" {
		v := &model.ProductVariant{
			SKUVariant: sku,
			Color:      row.Get(ColVariantColor),
			Size:       row.Get(ColVariantSize),
		}
		if v.PriceVariant, err = optionalDecimal(row, ColVariantPrice); err != nil {
			return nil, err
		}
		if v.QuantityVariant, err = optionalInt(row, ColVariantQuantity); err != nil {
			return nil, err
		}
		parsed.Variant = v
	}

	if url := row.Get(ColImageURL); url != "" {
		img := &model.ProductImage{
			ImageURL:     url,
			AltText:      row.Get(ColImageAltText),
			DisplayOrder: 1,
		}
		order, err := optionalInt(row, ColImageDisplayOrder)
		if err != nil {
			return nil, err
		}
		if order != nil {
			img.DisplayOrder = *order
		}
		parsed.Image = img
	}

	return parsed, nil
}

// SplitTags splits a comma separated list, trimming each tag and dropping
// empty ones. The result is never nil.
func SplitTags(raw string) pq.StringArray {
	tags := pq.StringArray{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func optionalDecimal(row Row, col string) (*decimal.Decimal, error) {
	raw := row.Get(col)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperror.Validation(col, "%q is not a number", raw)
	}
	return &d, nil
}

func optionalInt(row Row, col string) (*int, error) {
	raw := row.Get(col)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.Validation(col, "%q is not a whole number", raw)
	}
	return &n, nil
}
