package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/undercity/backend/internal/models"
)

type upsertRecorder struct {
	goals []*models.Goal
}

func (r *upsertRecorder) UpsertGoal(_ context.Context, g *models.Goal) error {
	r.goals = append(r.goals, g)
	return nil
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goals.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestSyncGoals(t *testing.T) {
	path := writeCatalog(t, `{
		"goals": [
			{"slug": "first-blood", "title": "First Blood", "metric": "times_eliminated", "target": 1},
			{"slug": "retired", "title": "Retired", "metric": "money", "target": 10000, "active": false}
		]
	}`)
	repo := &upsertRecorder{}

	n, err := SyncGoals(context.Background(), repo, path)
	if err != nil {
		t.Fatalf("SyncGoals: %v", err)
	}
	if n != 2 || len(repo.goals) != 2 {
		t.Fatalf("expected 2 upserts, got n=%d len=%d", n, len(repo.goals))
	}
	if repo.goals[0].Slug != "first-blood" || !repo.goals[0].IsActive {
		t.Errorf("first entry: %+v", repo.goals[0])
	}
	if repo.goals[1].IsActive {
		t.Error("explicit active=false should carry through")
	}
}

func TestSyncGoalsUnknownMetric(t *testing.T) {
	path := writeCatalog(t, `{
		"goals": [
			{"slug": "typo", "title": "Typo", "metric": "tota1_fights", "target": 5}
		]
	}`)
	repo := &upsertRecorder{}

	if _, err := SyncGoals(context.Background(), repo, path); err == nil {
		t.Fatal("expected an error for an unknown metric name")
	}
	if len(repo.goals) != 0 {
		t.Error("nothing should be upserted from an invalid catalog")
	}
}

func TestSyncGoalsSchemaViolations(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing goals key", `{}`},
		{"missing target", `{"goals": [{"slug": "x", "title": "X", "metric": "money"}]}`},
		{"zero target", `{"goals": [{"slug": "x", "title": "X", "metric": "money", "target": 0}]}`},
		{"empty slug", `{"goals": [{"slug": "", "title": "X", "metric": "money", "target": 1}]}`},
		{"unknown field", `{"goals": [{"slug": "x", "title": "X", "metric": "money", "target": 1, "reward": 5}]}`},
		{"not json", `goals:`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCatalog(t, tc.content)
			repo := &upsertRecorder{}
			if _, err := SyncGoals(context.Background(), repo, path); err == nil {
				t.Error("expected a validation error")
			}
			if len(repo.goals) != 0 {
				t.Error("nothing should be upserted")
			}
		})
	}
}

func TestSyncGoalsMissingFile(t *testing.T) {
	if _, err := SyncGoals(context.Background(), &upsertRecorder{}, filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
