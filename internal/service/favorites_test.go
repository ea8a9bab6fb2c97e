package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	redisrepo "github.com/JoseMS22/JyA-Innersport-sub000/internal/repository/redis"
	apperrors "github.com/JoseMS22/JyA-Innersport-sub000/pkg/errors"
)

func newTestFavoritesService(t *testing.T) *FavoritesService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := redisrepo.NewCollectionRepository(client, time.Hour)
	return NewFavoritesService(NewFavoritesCollection(repo), testLogger())
}

func TestFavoritesService_SaveAndList(t *testing.T) {
	svc := newTestFavoritesService(t)
	ctx := context.Background()

	items, err := svc.Save(ctx, domain.Guest(), SaveFavoriteInput{
		VariantID: "v-1",
		ProductID: "prod-1",
		Name:      "Bolso de hidratación",
		UnitPrice: 18500_00,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].AddedAt.IsZero())

	listed, err := svc.List(ctx, domain.Guest())
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestFavoritesService_Save_DuplicateIsNoop(t *testing.T) {
	svc := newTestFavoritesService(t)
	ctx := context.Background()
	input := SaveFavoriteInput{VariantID: "v-1", ProductID: "prod-1", Name: "Gorra"}

	_, err := svc.Save(ctx, domain.Guest(), input)
	require.NoError(t, err)

	items, err := svc.Save(ctx, domain.Guest(), input)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFavoritesService_Save_Validation(t *testing.T) {
	svc := newTestFavoritesService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, domain.Guest(), SaveFavoriteInput{ProductID: "p"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Save(ctx, domain.Guest(), SaveFavoriteInput{VariantID: "v"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestFavoritesService_Remove(t *testing.T) {
	svc := newTestFavoritesService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, domain.Guest(), SaveFavoriteInput{VariantID: "v-1", ProductID: "p-1", Name: "Maletín"})
	require.NoError(t, err)

	items, err := svc.Remove(ctx, domain.Guest(), "v-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	// Removing an absent variant is not an error.
	items, err = svc.Remove(ctx, domain.Guest(), "v-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFavoritesService_IdentityIsolation(t *testing.T) {
	svc := newTestFavoritesService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, domain.User("user-001"), SaveFavoriteInput{VariantID: "v-1", ProductID: "p-1", Name: "Medias"})
	require.NoError(t, err)

	items, err := svc.List(ctx, domain.Guest())
	require.NoError(t, err)
	assert.Empty(t, items)
}
