package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchfs/branchfs/internal/branch"
)

func newTestConfig(t *testing.T) *Configuration {
	t.Helper()
	dir := t.TempDir()
	b := branch.New(dir, branch.RW, -1, nil, 0)
	return Default(branch.NewCollection([]*branch.Branch{b}))
}

func TestDefaultCreatePolicyIsPfrd(t *testing.T) {
	cfg := newTestConfig(t)
	assert.Equal(t, "pfrd", cfg.PolicyFor("create"))
	assert.Equal(t, "epff", cfg.PolicyFor("getattr"))
}

func TestDefaultActionPolicyIsEpall(t *testing.T) {
	cfg := newTestConfig(t)
	for _, op := range categoryOps["action"] {
		assert.Equal(t, "epall", cfg.PolicyFor(op), "op %s", op)
	}
}

func TestSetFuncPolicy(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, Set(cfg, "func.create", "mfs"))
	got, err := Get(cfg, "func.create")
	require.NoError(t, err)
	assert.Equal(t, "mfs", got)
}

func TestSetUnknownKeyFails(t *testing.T) {
	cfg := newTestConfig(t)
	err := Set(cfg, "bogus.key", "x")
	require.Error(t, err)
	assert.True(t, IsUnknownKey(err))
}

func TestInstanceIDIsReadableAndUniquePerConfig(t *testing.T) {
	a := newTestConfig(t)
	b := newTestConfig(t)
	require.NotEmpty(t, a.InstanceID)
	assert.NotEqual(t, a.InstanceID, b.InstanceID)

	got, err := Get(a, "instance_id")
	require.NoError(t, err)
	assert.Equal(t, a.InstanceID, got)
}

func TestSetInstanceIDIsRejected(t *testing.T) {
	cfg := newTestConfig(t)
	err := Set(cfg, "instance_id", "forged-id")
	require.Error(t, err)
	assert.True(t, IsMountTimeOnlyError(err))
}

func TestSetMountTimeOnlyKeyFails(t *testing.T) {
	cfg := newTestConfig(t)
	err := Set(cfg, "inodecalc", "devino-hash")
	require.Error(t, err)
	assert.True(t, IsMountTimeOnlyError(err))
}

func TestSetInvalidValueFails(t *testing.T) {
	cfg := newTestConfig(t)
	err := Set(cfg, "minfreespace", "not-a-number")
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))
}

func TestCategoryShorthandSetsEveryOpInCategory(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, Set(cfg, "category.create", "all"))
	for _, op := range categoryOps["create"] {
		assert.Equal(t, "all", cfg.PolicyFor(op))
	}
}

func TestSetUnknownCacheFilesModeFails(t *testing.T) {
	// the control-entry write path rejects an unknown cache.files mode
	// with a classifiable invalid-value error, not a panic.
	cfg := newTestConfig(t)
	err := Set(cfg, "cache.files", "bogus-mode")
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))
}

func TestStoreUpdateIsAtomicOnFailure(t *testing.T) {
	cfg := newTestConfig(t)
	store := NewStore(cfg)
	err := store.Update(func(c *Configuration) error {
		return Set(c, "bogus.key", "x")
	})
	require.Error(t, err)
	assert.Same(t, cfg, store.Snapshot(), "a failed Update must leave the snapshot unchanged")
}

func TestResolveCacheFilesOffModeForcesDirectIO(t *testing.T) {
	flags := ResolveCacheFiles("off", 0, nil)
	assert.True(t, flags.DirectIO)
}
