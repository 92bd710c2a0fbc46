package productcontroller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns shared by the product import and export sheets.
var productColumns = []string{
	"ID", "Name", "Slug", "SKU", "ShortDescription", "Price", "Discount", "New", "Stock", "CategoryID",
}

// ImportProductsFromExcel creates or updates products from the first sheet
// of an uploaded workbook laid out like the export. Rows with an ID update
// that product; rows without one are created. Invalid rows are skipped.
func ImportProductsFromExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		if len(xlFile.Sheets) == 0 || xlFile.Sheets[0].MaxRow < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or missing header row"})
			return
		}

		sheet := xlFile.Sheets[0]
		createdCount, updatedCount, skippedCount := 0, 0, 0
		ctx := c.Request.Context()

		for i := 1; i < sheet.MaxRow; i++ {
			row := sheet.Rows[i]
			if row == nil || len(row.Cells) == 0 {
				skippedCount++
				continue
			}

			id, product, ok := parseProductRow(row)
			if !ok {
				skippedCount++
				continue
			}
			if categoryExists(db.WithContext(ctx), product.CategoryID) != nil {
				skippedCount++
				continue
			}

			if id != 0 {
				var existing models.Product
				err := db.WithContext(ctx).First(&existing, id).Error
				if err == nil {
					product.ID = existing.ID
					if err := db.WithContext(ctx).Omit(clause.Associations).Save(&product).Error; err == nil {
						updatedCount++
					} else {
						skippedCount++
					}
					continue
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					skippedCount++
					continue
				}
			}

			if err := db.WithContext(ctx).Omit(clause.Associations).Create(&product).Error; err == nil {
				createdCount++
			} else {
				skippedCount++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": createdCount,
			"updated_count": updatedCount,
			"skipped_count": skippedCount,
		})
	}
}

func parseProductRow(row *xlsx.Row) (uint, models.Product, bool) {
	get := func(index int) string {
		if index < len(row.Cells) {
			return strings.TrimSpace(row.Cells[index].String())
		}
		return ""
	}

	var id uint
	if s := get(0); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, models.Product{}, false
		}
		id = uint(n)
	}

	input := ProductInput{
		Name:             get(1),
		Slug:             get(2),
		ShortDescription: get(4),
	}
	if sku := get(3); sku != "" {
		input.SKU = &sku
	}
	price, err := decimal.NewFromString(get(5))
	if err != nil || input.Name == "" {
		return 0, models.Product{}, false
	}
	input.Price = price
	if s := get(6); s != "" {
		discount, err := decimal.NewFromString(s)
		if err != nil {
			return 0, models.Product{}, false
		}
		input.Discount = decimal.NewNullDecimal(discount)
	}
	input.New, _ = strconv.ParseBool(get(7))
	stock, err := strconv.Atoi(get(8))
	if err != nil || stock < 0 {
		return 0, models.Product{}, false
	}
	input.Stock = stock
	categoryID, err := strconv.ParseUint(get(9), 10, 64)
	if err != nil {
		return 0, models.Product{}, false
	}
	input.CategoryID = uint(categoryID)
	if input.validate() != nil {
		return 0, models.Product{}, false
	}

	var product models.Product
	input.apply(&product)
	return id, product, true
}
