package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/undercity/backend/internal/models"
)

// catalogSchema validates goal catalog files before they touch the database.
const catalogSchema = `{
	"type": "object",
	"required": ["goals"],
	"properties": {
		"goals": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["slug", "title", "metric", "target"],
				"properties": {
					"slug": {"type": "string", "minLength": 1},
					"title": {"type": "string", "minLength": 1},
					"metric": {"type": "string", "minLength": 1},
					"target": {"type": "integer", "minimum": 1},
					"active": {"type": "boolean"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

type catalogEntry struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Metric string `json:"metric"`
	Target int    `json:"target"`
	Active *bool  `json:"active,omitempty"`
}

type catalog struct {
	Goals []catalogEntry `json:"goals"`
}

// GoalUpserter syncs one catalog entry into the goals table.
type GoalUpserter interface {
	UpsertGoal(ctx context.Context, g *models.Goal) error
}

// SyncGoals loads the goal catalog file, validates it against the embedded
// schema, checks each metric name against the Metric enum, and upserts the
// entries keyed by slug. Entries absent from the file keep their stored
// is_active flag.
func SyncGoals(ctx context.Context, repo GoalUpserter, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read goal catalog: %w", err)
	}

	schema, err := jsonschema.CompileString("goals.schema.json", catalogSchema)
	if err != nil {
		return 0, fmt.Errorf("compile catalog schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("parse goal catalog: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return 0, fmt.Errorf("invalid goal catalog: %w", err)
	}

	var c catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, fmt.Errorf("decode goal catalog: %w", err)
	}

	for i, e := range c.Goals {
		if _, err := ParseMetric(strings.TrimSpace(e.Metric)); err != nil {
			return 0, fmt.Errorf("goal catalog entry %d (%s): %w", i, e.Slug, err)
		}
	}

	for _, e := range c.Goals {
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		g := &models.Goal{
			ID:       uuid.New(),
			Slug:     e.Slug,
			Title:    e.Title,
			Metric:   strings.TrimSpace(e.Metric),
			Target:   e.Target,
			IsActive: active,
		}
		if err := repo.UpsertGoal(ctx, g); err != nil {
			return 0, fmt.Errorf("upsert goal %s: %w", e.Slug, err)
		}
	}
	return len(c.Goals), nil
}
