package submission

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/bshape/internal/models"
)

func completedSession(t *testing.T) *models.Session {
	t.Helper()
	started := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	completed := started.Add(20 * time.Minute)

	s := models.NewSession("session-1", started)
	s.RelationshipConcerns = []string{"My current husband or partner", "My in-laws"}
	s.LivingWith = "I live alone"
	s.LivingPreference = "Yes, I would like to continue living with people in my household or to continue living alone"
	s.PartnerAnswers["1"] = models.Yes()
	s.PartnerAnswers["2"] = models.No()
	s.InLawsAnswers["1"] = models.Yes()
	points := 17
	s.Scores.Partner = &points
	s.Scores.InLaws = models.RiskHigh
	s.Results.Partner = models.RiskIncreased
	s.Results.InLaws = models.RiskHigh
	s.CompletedAt = &completed
	return s
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name   string
		dbPath string
	}{
		{"in-memory database", ":memory:"},
		{"file database", filepath.Join(t.TempDir(), "submissions.db")},
		{"creates parent directories", filepath.Join(t.TempDir(), "nested", "dir", "submissions.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			require.NoError(t, err)
			defer store.Close()

			version, err := store.latestVersion()
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, store.Path())
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "submissions.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), completedSession(t), "10.0.0.1")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.ApplyMigrations(context.Background()))
	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "reopening must keep existing rows")
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	submittedAt := time.Date(2026, 10, 15, 9, 21, 3, 500, time.UTC)
	store.now = func() time.Time { return submittedAt }
	store.newID = func() string { return "sub-1" }

	sess := completedSession(t)
	rec, err := store.Insert(context.Background(), sess, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", rec.ID)

	got, err := store.Get(context.Background(), "sub-1")
	require.NoError(t, err)

	assert.Equal(t, "session-1", got.SessionID)
	assert.True(t, submittedAt.Equal(got.SubmittedAt))
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, models.RiskIncreased, got.PartnerLevel)
	require.NotNil(t, got.PartnerScore)
	assert.Equal(t, 17, *got.PartnerScore)
	assert.Equal(t, models.RiskHigh, got.InLawsLevel)
	assert.Empty(t, got.FamilyLevel)
	assert.Equal(t, sess, got.Session)

	assert.Equal(t, map[models.Section]models.RiskLevel{
		models.SectionPartner: models.RiskIncreased,
		models.SectionInLaws:  models.RiskHigh,
	}, got.Levels())
}

func TestInsertDefaultsAddress(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.Insert(context.Background(), completedSession(t), "")
	require.NoError(t, err)
	assert.Equal(t, UnknownAddress, rec.IPAddress)
}

func TestInsertRejectsNilSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Insert(context.Background(), nil, "10.0.0.1")
	require.Error(t, err)
}

func TestInsertWithoutPartnerScore(t *testing.T) {
	store := newTestStore(t)
	sess := completedSession(t)
	sess.Scores.Partner = nil
	sess.Results.Partner = ""

	rec, err := store.Insert(context.Background(), sess, "10.0.0.1")
	require.NoError(t, err)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PartnerScore)
	assert.Empty(t, got.PartnerLevel)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "missing")
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		id := fmt.Sprintf("sub-%d", i)
		store.now = func() time.Time { return at }
		store.newID = func() string { return id }
		_, err := store.Insert(context.Background(), completedSession(t), "10.0.0.1")
		require.NoError(t, err)
	}

	all, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sub-2", all[0].ID)
	assert.Equal(t, "sub-1", all[1].ID)
	assert.Equal(t, "sub-0", all[2].ID)

	limited, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "sub-2", limited[0].ID)
}

func TestListEmpty(t *testing.T) {
	store := newTestStore(t)
	records, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreSubmit(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Submit(context.Background(), completedSession(t))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, LocalAddress, rec.IPAddress)
}

func TestSubmitIDsAreUnique(t *testing.T) {
	store := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := store.Submit(context.Background(), completedSession(t))
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
