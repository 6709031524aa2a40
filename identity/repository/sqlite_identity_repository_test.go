package identityrepo_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain"
	identityrepo "github.com/agora-labs/gatekeeper/identity/repository"
)

const (
	testGroupID    = "-1001431174128"
	testIdentityID = "12345678"
	testAddress    = "0x52908400098527886E0F7030069857D2E4169EE7"

	// lowercase form of testAddress
	testAddressNormalized = "0x52908400098527886e0f7030069857d2e4169ee7"

	otherAddress = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func newRepo(t *testing.T) *identityrepo.Repository {
	t.Helper()

	repo, err := identityrepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

func TestLinkIdentity_RoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	err := repo.LinkIdentity(ctx, testIdentityID, testAddress, testGroupID)
	require.NoError(t, err)

	link, err := repo.ResolveIdentity(ctx, testIdentityID, testGroupID)
	require.NoError(t, err)
	require.Equal(t, testIdentityID, link.IdentityID)
	require.Equal(t, testGroupID, link.GroupID)
	require.Equal(t, testAddressNormalized, link.Address)
	require.False(t, link.IsMember())
	require.WithinDuration(t, time.Now().UTC(), link.CreatedAt, time.Minute)

	// reverse lookup, with unnormalized input
	link, err = repo.ResolveAddress(ctx, testAddress, testGroupID)
	require.NoError(t, err)
	require.Equal(t, testIdentityID, link.IdentityID)
}

func TestLinkIdentity_Idempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LinkIdentity(ctx, testIdentityID, testAddress, testGroupID))

	first, err := repo.ResolveIdentity(ctx, testIdentityID, testGroupID)
	require.NoError(t, err)

	require.NoError(t, repo.ConfirmJoin(ctx, testIdentityID, testGroupID))

	// identical arguments leave stored state identical, including the
	// join confirmation
	require.NoError(t, repo.LinkIdentity(ctx, testIdentityID, testAddress, testGroupID))

	second, err := repo.ResolveIdentity(ctx, testIdentityID, testGroupID)
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.True(t, second.IsMember())
}

func TestLinkIdentity_OverwritesAddress(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LinkIdentity(ctx, testIdentityID, testAddress, testGroupID))
	require.NoError(t, repo.ConfirmJoin(ctx, testIdentityID, testGroupID))

	// last write wins, join confirmation does not carry over to the new
	// address
	require.NoError(t, repo.LinkIdentity(ctx, testIdentityID, otherAddress, testGroupID))

	link, err := repo.ResolveIdentity(ctx, testIdentityID, testGroupID)
	require.NoError(t, err)
	require.NotEqual(t, testAddressNormalized, link.Address)
	require.False(t, link.IsMember())

	// old address no longer resolves
	_, err = repo.ResolveAddress(ctx, testAddress, testGroupID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLinkIdentity_InvalidAddress(t *testing.T) {
	repo := newRepo(t)

	err := repo.LinkIdentity(context.Background(), testIdentityID, "not-an-address", testGroupID)
	require.Error(t, err)
	require.ErrorAs(t, err, &domain.InvalidAddressError{})
}

func TestResolveIdentity_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.ResolveIdentity(context.Background(), "missing", testGroupID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmJoin_NotFound(t *testing.T) {
	repo := newRepo(t)

	err := repo.ConfirmJoin(context.Background(), "missing", testGroupID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnlink(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LinkIdentity(ctx, testIdentityID, testAddress, testGroupID))
	require.NoError(t, repo.Unlink(ctx, testIdentityID, testGroupID))

	_, err := repo.ResolveIdentity(ctx, testIdentityID, testGroupID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// unlinking an absent pair is a no-op
	require.NoError(t, repo.Unlink(ctx, testIdentityID, testGroupID))
}

func TestListLinked(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.LinkIdentity(ctx, "b", testAddress, testGroupID))
	require.NoError(t, repo.LinkIdentity(ctx, "a", otherAddress, testGroupID))
	require.NoError(t, repo.LinkIdentity(ctx, "c", testAddress, "other-group"))

	identityIDs, err := repo.ListLinked(ctx, testGroupID)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, identityIDs)
}

func TestUpsertGroup_RoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	group := domain.Group{
		ID:           testGroupID,
		PoolAddress:  testAddress,
		TokenAddress: otherAddress,
		Thresholds: []*big.Int{
			big.NewInt(1000),
			big.NewInt(100),
			big.NewInt(10),
		},
		SweepInterval: 45 * time.Minute,
	}

	require.NoError(t, repo.UpsertGroup(ctx, group))

	stored, err := repo.GetGroup(ctx, testGroupID)
	require.NoError(t, err)
	require.Equal(t, testAddressNormalized, stored.PoolAddress)
	require.Equal(t, group.Thresholds, stored.Thresholds)
	require.Equal(t, 45*time.Minute, stored.SweepInterval)

	groups, err := repo.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestUpsertGroup_RejectsNonDescendingThresholds(t *testing.T) {
	repo := newRepo(t)

	group := domain.Group{
		ID:           testGroupID,
		PoolAddress:  testAddress,
		TokenAddress: otherAddress,
		Thresholds: []*big.Int{
			big.NewInt(100),
			big.NewInt(100),
		},
	}

	err := repo.UpsertGroup(context.Background(), group)
	require.Error(t, err)
	require.ErrorAs(t, err, &domain.ThresholdsNotDescendingError{})
}

func TestGetGroup_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetGroup(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
