package testing

import (
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// NewUserFixture returns a test user
func NewUserFixture(id int64) domain.User {
	return domain.User{
		ID:        id,
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		FirstName: "John",
		LastName:  "Doe",
	}
}

// NewHoldingFixtures returns holdings for userID spread over three sectors
func NewHoldingFixtures(userID int64) []domain.Holding {
	buyDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return []domain.Holding{
		{
			UserID:      userID,
			Symbol:      "AAPL",
			CompanyName: "Apple Inc.",
			Sector:      "Technology",
			Industry:    "Consumer Electronics",
			AssetType:   domain.AssetTypeStock,
			Quantity:    10,
			BuyPrice:    decimal.RequireFromString("150.00"),
			BuyDate:     buyDate,
		},
		{
			UserID:      userID,
			Symbol:      "JPM",
			CompanyName: "JPMorgan Chase & Co.",
			Sector:      "Financial Services",
			Industry:    "Banks",
			AssetType:   domain.AssetTypeStock,
			Quantity:    5,
			BuyPrice:    decimal.RequireFromString("140.00"),
			BuyDate:     buyDate,
		},
		{
			UserID:      userID,
			Symbol:      "JNJ",
			CompanyName: "Johnson & Johnson",
			Sector:      "Healthcare",
			Industry:    "Drug Manufacturers",
			AssetType:   domain.AssetTypeStock,
			Quantity:    8,
			BuyPrice:    decimal.RequireFromString("160.00"),
			BuyDate:     buyDate,
		},
	}
}
