package risk

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepositoryUpsert(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (1, 'jdoe', 'jdoe@example.com', 'x', 0, 0)`)
	require.NoError(t, err)

	repo := NewProfileRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	missing, err := repo.ByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	analyzedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.RiskProfile{
		UserID:               1,
		Category:             domain.RiskModerate,
		VolatilityScore:      decimal.RequireFromString("4.64"),
		DiversificationScore: decimal.RequireFromString("6.00"),
		MaxLossTolerance:     decimal.RequireFromString("15.00"),
		LastAnalyzedAt:       analyzedAt,
	}
	require.NoError(t, repo.Save(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, domain.HorizonMedium, p.InvestmentHorizon)

	firstID := p.ID
	p.Category = domain.RiskAggressive
	p.VolatilityScore = decimal.RequireFromString("10.00")
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, firstID, p.ID)

	got, err := repo.ByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RiskAggressive, got.Category)
	assert.Equal(t, "10.00", got.VolatilityScore.StringFixed(2))
	assert.Equal(t, "6.00", got.DiversificationScore.StringFixed(2))
	assert.Equal(t, analyzedAt, got.LastAnalyzedAt)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM risk_profiles").Scan(&count))
	assert.Equal(t, 1, count)
}
