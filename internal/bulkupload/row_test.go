package bulkupload

import (
	"testing"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleRow(t *testing.T, csv string) Row {
	t.Helper()
	table := readCSVString(t, csv)
	require.Len(t, table.Rows, 1)
	return table.Rows[0]
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, pq.StringArray{"a", "b", "c"}, SplitTags("a, b ,c"))
	assert.Equal(t, pq.StringArray{"a", "c"}, SplitTags("a,, ,c,"))
	tags := SplitTags("")
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestParseRowFull(t *testing.T) {
	row := singleRow(t, "id,sku,name,model_name,cost_price,selling_price,quantity_on_hand,status,description,tags,variant_sku,variant_color,variant_size,variant_price,variant_quantity,image_url,image_alt_text,image_display_order\n"+
		"6f1c2b1e-8a8e-4a53-9d7e-0d4e0b5a9c11,X1,Widget,W-100,10.50,20,5,Draft,Nice,\"a, b ,c\",X1-R,red,M,21.5,2,https://img/x1.png,front,3\n")

	parsed, err := ParseRow(row)
	require.NoError(t, err)
	p := parsed.Product
	assert.True(t, parsed.HasID)
	assert.Equal(t, "6f1c2b1e-8a8e-4a53-9d7e-0d4e0b5a9c11", p.ID.String())
	assert.Equal(t, "X1", p.SKU)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "W-100", p.ModelName)
	assert.True(t, decimal.RequireFromString("10.5").Equal(*p.CostPrice))
	assert.True(t, decimal.NewFromInt(20).Equal(*p.SellingPrice))
	assert.Equal(t, 5, *p.QuantityOnHand)
	assert.Equal(t, model.ProductDraft, p.Status)
	assert.Equal(t, pq.StringArray{"a", "b", "c"}, p.Tags)

	require.NotNil(t, parsed.Variant)
	assert.Equal(t, "X1-R", parsed.Variant.SKUVariant)
	assert.Equal(t, "red", parsed.Variant.Color)
	assert.Equal(t, 2, *parsed.Variant.QuantityVariant)

	require.NotNil(t, parsed.Image)
	assert.Equal(t, "https://img/x1.png", parsed.Image.ImageURL)
	assert.Equal(t, 3, parsed.Image.DisplayOrder)
}

func TestParseRowEmptyNumbersStayNil(t *testing.T) {
	row := singleRow(t, "sku,name,status,cost_price,selling_price,quantity_on_hand,image_url\nX1,Widget,active,,,0,https://img/x.png\n")

	parsed, err := ParseRow(row)
	require.NoError(t, err)
	assert.False(t, parsed.HasID)
	assert.Nil(t, parsed.Product.CostPrice)
	assert.Nil(t, parsed.Product.SellingPrice)
	require.NotNil(t, parsed.Product.QuantityOnHand)
	assert.Equal(t, 0, *parsed.Product.QuantityOnHand)
	assert.Nil(t, parsed.Variant)
	assert.Equal(t, 1, parsed.Image.DisplayOrder)
	assert.Equal(t, []string{"sku", "name", "cost_price", "selling_price", "quantity_on_hand", "status"}, parsed.Columns)
}

func TestParseRowColumnsComeFromHeader(t *testing.T) {
	parsed, err := ParseRow(singleRow(t, "id,SKU,name,supplier_name,tags,status\n,X1,Widget,,,active\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "name", "supplier_id", "status", "tags"}, parsed.Columns)
	assert.NotContains(t, parsed.Columns, "reorder_level")
}

func TestParseRowRejects(t *testing.T) {
	for name, tc := range map[string]struct {
		csv   string
		field string
	}{
		"missing sku":     {"sku,name,status\n,Widget,active\n", "sku"},
		"missing name":    {"sku,name,status\nX1,,active\n", "name"},
		"bad id":          {"id,sku,name,status\nabc,X1,Widget,active\n", "id"},
		"bad price":       {"sku,name,status,cost_price\nX1,Widget,active,ten\n", "cost_price"},
		"fractional qty":  {"sku,name,status,quantity_on_hand\nX1,Widget,active,1.5\n", "quantity_on_hand"},
		"bad variant qty": {"sku,name,status,variant_sku,variant_quantity\nX1,Widget,active,V1,x\n", "variant_quantity"},
		"bad image order": {"sku,name,status,image_url,image_display_order\nX1,Widget,active,u,first\n", "image_display_order"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRow(singleRow(t, tc.csv))
			var ve *apperror.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestParseRowStatus(t *testing.T) {
	for _, status := range []string{"", "live"} {
		_, err := ParseRow(singleRow(t, "sku,name,status\nX1,Widget,"+status+"\n"))
		var ee *apperror.InvalidEnumError
		require.ErrorAs(t, err, &ee, status)
		assert.Equal(t, "status", ee.Field)
	}

	parsed, err := ParseRow(singleRow(t, "sku,name,status\nX1,Widget, ARCHIVED \n"))
	require.NoError(t, err)
	assert.Equal(t, model.ProductArchived, parsed.Product.Status)
}
