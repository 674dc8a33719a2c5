package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureActiveRuleIndex creates the indexes used by active rule searches.
func EnsureActiveRuleIndex(ctx context.Context, db *mongo.Database, collectionName string) error {
	collection := db.Collection(collectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "profile_key", Value: 1}, {Key: "rule_key", Value: 1}},
			Options: options.Index().SetName("idx_active_rules_profile_rule"),
		},
		{
			Keys:    bson.D{{Key: "profile_key", Value: 1}, {Key: "severity", Value: 1}},
			Options: options.Index().SetName("idx_active_rules_profile_severity"),
		},
		{
			Keys:    bson.D{{Key: "rule_key", Value: 1}},
			Options: options.Index().SetName("idx_active_rules_rule"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
