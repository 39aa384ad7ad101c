package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/tariff"
)

func tariffTable() *tariff.Store {
	return tariff.NewStore("US-HTS-2025-10-18", []domain.TariffRecord{
		{HTS10: "0101210010", Chapter: 1, Article: "Live horses, purebred breeding", RateGeneral: "Free"},
		{HTS10: "0101290010", Chapter: 1, Article: "Live horses, other", RateGeneral: "Free"},
		{HTS10: "0102210010", Chapter: 1, Article: "Cattle, purebred breeding", RateGeneral: "Free"},
		{HTS10: "8471300100", Chapter: 84, Article: "Portable automatic data processing machines", RateGeneral: "Free"},
	})
}

func TestTariffService_Lookup(t *testing.T) {
	svc := NewTariffService(tariffTable(), "")
	ctx := context.Background()

	rec, err := svc.Lookup(ctx, "0101.21.00 10")
	require.NoError(t, err)
	assert.Equal(t, "0101210010", rec.HTS10)
	assert.Equal(t, "Free", rec.RateGeneral)

	_, err = svc.Lookup(ctx, "9999999999")
	assert.ErrorIs(t, err, domain.ErrCodeNotFoundInSnapshot)
	assert.Equal(t, domain.ErrCodeNotFound, domain.ErrorCode(err))

	_, err = svc.Lookup(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyCode)
}

func TestTariffService_Search(t *testing.T) {
	svc := NewTariffService(tariffTable(), "")
	ctx := context.Background()

	t.Run("rejects short queries", func(t *testing.T) {
		_, err := svc.Search(ctx, "", 5)
		assert.ErrorIs(t, err, domain.ErrQueryTooShort)

		_, err = svc.Search(ctx, " h ", 5)
		assert.ErrorIs(t, err, domain.ErrQueryTooShort)
	})

	t.Run("ranks and limits deterministically", func(t *testing.T) {
		first, err := svc.Search(ctx, "live horses", 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, "0101210010", first[0].HTS10)
		assert.Equal(t, "0101290010", first[1].HTS10)

		again, err := svc.Search(ctx, "live horses", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("default limit", func(t *testing.T) {
		all, err := svc.Search(ctx, "horses", DefaultSearchLimit)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("non-positive limit returns one", func(t *testing.T) {
		for _, limit := range []int{0, -2} {
			got, err := svc.Search(ctx, "horses", limit)
			require.NoError(t, err)
			assert.Len(t, got, 1, "limit %d", limit)
		}
	})
}

func TestTariffService_Disclaimer(t *testing.T) {
	assert.Equal(t, DefaultDisclaimer, NewTariffService(tariffTable(), "").Disclaimer())
	assert.Equal(t, "custom", NewTariffService(tariffTable(), "custom").Disclaimer())
	assert.Equal(t, domain.SnapshotID("US-HTS-2025-10-18"), NewTariffService(tariffTable(), "").SnapshotID())
}
