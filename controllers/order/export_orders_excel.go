package orderControllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

var orderColumns = []string{
	"order_id", "placed_at", "payment_status", "customer_id", "billing_email",
	"ship_to", "product", "variation", "quantity", "unit_price", "charged_unit_price", "order_total",
}

// ExportOrdersToExcel writes one row per order item.
func ExportOrdersToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := withDetails(db.WithContext(c.Request.Context())).Order("id").Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Orders")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		header := sheet.AddRow()
		for _, h := range orderColumns {
			header.AddCell().SetValue(h)
		}

		for _, o := range orders {
			var customer string
			if o.CustomerID != nil {
				customer = strconv.FormatUint(uint64(*o.CustomerID), 10)
			}
			for _, item := range o.Items {
				row := sheet.AddRow()
				row.AddCell().SetValue(o.ID)
				row.AddCell().SetValue(o.PlacedAt.UTC().Format(time.RFC3339))
				row.AddCell().SetValue(string(o.PaymentStatus))
				row.AddCell().SetValue(customer)
				row.AddCell().SetValue(o.BillingAddress.Email)
				row.AddCell().SetValue(o.ShippingAddressLine())
				row.AddCell().SetValue(item.Product.Name)
				variation := ""
				if item.Variation != nil {
					variation = *item.Variation
				}
				row.AddCell().SetValue(variation)
				row.AddCell().SetValue(item.Quantity)
				row.AddCell().SetValue(item.UnitPrice.StringFixed(2))
				row.AddCell().SetValue(item.ChargeableUnitPrice().StringFixed(2))
				row.AddCell().SetValue(o.FinalPrice.StringFixed(2))
			}
		}

		c.Header("Content-Disposition", "attachment; filename=orders.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}
