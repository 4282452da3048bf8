package graphmodel

import (
	"context"
	"fmt"
	"strings"

	"github.com/savasp/graphmodel-go/types"
)

// complexManager maintains the private companion nodes that back complex
// properties. All operations run on a caller-provided runner so that an
// entity and its companions change in one transaction.
type complexManager struct {
	maxDepth int
}

func newComplexManager(maxDepth int) *complexManager {
	if maxDepth <= 0 {
		maxDepth = DefaultDepthAllowed
	}
	return &complexManager{maxDepth: maxDepth}
}

// create writes the companion nodes of info under the node identified by
// parentID. Each companion gets its own generated id so nested companions
// can hang off it.
func (m *complexManager) create(ctx context.Context, runner queryRunner, parentID types.ID, info *EntityInfo) error {
	for _, cp := range info.ComplexProperties {
		relType := PropertyNameToRelationshipType(cp.Name)
		for _, entry := range cp.Entries {
			childID := types.NewID()
			cypher := fmt.Sprintf(`
				MATCH (p {id: $parent_id})
				CREATE (c:%s {id: $id})
				SET c += $props
				CREATE (p)-[:%s {sequence_number: $seq}]->(c)
				RETURN c.id AS id`,
				strings.Join(entry.Info.Labels, ":"), relType)
			result, err := runner.Run(ctx, cypher, map[string]any{
				"parent_id": string(parentID),
				"id":        string(childID),
				"props":     entry.Info.SimpleProperties,
				"seq":       int64(entry.SequenceNumber),
			})
			if err != nil {
				return err
			}
			if len(result.Records) == 0 {
				return types.NewNotFoundError("node", string(parentID))
			}
			if err := m.create(ctx, runner, childID, entry.Info); err != nil {
				return err
			}
		}
	}
	return nil
}

// update replaces the companion structure wholesale: delete everything
// reachable over private relationships, then recreate from info. Replace
// keeps ordering and nesting consistent without diffing stored structure
// against the new value.
func (m *complexManager) update(ctx context.Context, runner queryRunner, parentID types.ID, info *EntityInfo) error {
	if err := m.deleteAll(ctx, runner, parentID); err != nil {
		return err
	}
	return m.create(ctx, runner, parentID, info)
}

// deleteAll removes every companion node reachable from parentID over
// private relationships only, bounded by the configured depth.
func (m *complexManager) deleteAll(ctx context.Context, runner queryRunner, parentID types.ID) error {
	cypher := fmt.Sprintf(`
		MATCH (p {id: $id})-[rels*1..%d]->(c)
		WHERE all(rel IN rels WHERE type(rel) STARTS WITH $prefix)
		DETACH DELETE c`, m.maxDepth)
	_, err := runner.Run(ctx, cypher, map[string]any{
		"id":     string(parentID),
		"prefix": propertyRelPrefix,
	})
	return err
}
