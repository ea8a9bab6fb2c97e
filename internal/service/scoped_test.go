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

func newCartCollection(t *testing.T) *ScopedCollection[domain.Cart] {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := redisrepo.NewCollectionRepository(client, time.Hour)
	return NewScopedCollection(repo, "cart", 1, func() domain.Cart { return domain.Cart{} })
}

func TestScopedCollection_LoadEmpty(t *testing.T) {
	carts := newCartCollection(t)

	cart, err := carts.Load(context.Background(), domain.Guest())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestScopedCollection_MutateRoundTrip(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()
	identity := domain.User("user-001")

	cart, err := carts.Mutate(ctx, identity, func(c *domain.Cart) error {
		c.AddItem(domain.CartItem{VariantID: "v-1", UnitPrice: 1500_00}, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount())

	loaded, err := carts.Load(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.ItemCount())
}

func TestScopedCollection_IdentityIsolation(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()

	_, err := carts.Mutate(ctx, domain.Guest(), func(c *domain.Cart) error {
		c.AddItem(domain.CartItem{VariantID: "guest-item", UnitPrice: 100}, 1)
		return nil
	})
	require.NoError(t, err)

	cart, err := carts.Load(ctx, domain.User("user-001"))
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestScopedCollection_Mutate_FnErrorAborts(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()

	_, err := carts.Mutate(ctx, domain.Guest(), func(c *domain.Cart) error {
		return apperrors.InvalidInput("bad item")
	})
	require.Error(t, err)

	cart, err := carts.Load(ctx, domain.Guest())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestScopedCollection_StaleWriteDiscarded(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()
	identity := domain.User("user-001")

	entered := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		_, err := carts.Mutate(ctx, identity, func(c *domain.Cart) error {
			close(entered)
			<-release
			c.AddItem(domain.CartItem{VariantID: "late", UnitPrice: 100}, 1)
			return nil
		})
		result <- err
	}()

	// Simulate a sign-out landing while the mutation is still computing.
	<-entered
	carts.Invalidate(identity)
	close(release)

	err := <-result
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// The late write never reached storage.
	cart, err := carts.Load(ctx, identity)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestScopedCollection_InvalidateOtherIdentityDoesNotInterfere(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()

	carts.Invalidate(domain.User("someone-else"))

	_, err := carts.Mutate(ctx, domain.Guest(), func(c *domain.Cart) error {
		c.AddItem(domain.CartItem{VariantID: "v-1", UnitPrice: 100}, 1)
		return nil
	})
	assert.NoError(t, err)
}

func TestScopedCollection_Clear(t *testing.T) {
	carts := newCartCollection(t)
	ctx := context.Background()
	identity := domain.User("user-001")

	_, err := carts.Mutate(ctx, identity, func(c *domain.Cart) error {
		c.AddItem(domain.CartItem{VariantID: "v-1", UnitPrice: 100}, 1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, carts.Clear(ctx, identity))

	cart, err := carts.Load(ctx, identity)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}
