package qualityprofile

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activeRuleDocument struct {
	ID         string            `bson:"_id"`
	ProfileKey string            `bson:"profile_key"`
	RuleKey    string            `bson:"rule_key"`
	Repository string            `bson:"repository"`
	Severity   string            `bson:"severity"`
	Params     map[string]string `bson:"params"`
	IndexedAt  time.Time         `bson:"indexed_at"`
}

func (d activeRuleDocument) toActiveRule() ActiveRule {
	params := d.Params
	if params == nil {
		params = map[string]string{}
	}
	return ActiveRule{
		Key:       NewActiveRuleKey(d.ProfileKey, RuleKey(d.RuleKey)),
		Severity:  Severity(d.Severity),
		Params:    params,
		UpdatedAt: d.IndexedAt,
	}
}

// MongoActiveRuleIndex is the search index of active rules. Documents are
// keyed by the active rule key, so replaying a change set is harmless.
type MongoActiveRuleIndex struct {
	collection *mongo.Collection
}

func NewMongoActiveRuleIndex(db *mongo.Database, collection string) *MongoActiveRuleIndex {
	return &MongoActiveRuleIndex{collection: db.Collection(collection)}
}

func (r *MongoActiveRuleIndex) Index(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(changes))
	for _, c := range changes {
		id := c.Key.String()
		if c.Type == ChangeDeactivated {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
			continue
		}
		doc := activeRuleDocument{
			ID:         id,
			ProfileKey: c.Key.ProfileKey,
			RuleKey:    string(c.Key.RuleKey),
			Repository: c.Key.RuleKey.Repository(),
			Severity:   string(c.Severity.OrElse("")),
			Params:     c.Params,
			IndexedAt:  now,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	// Ordered, so that several changes of one key apply in sequence.
	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to index active rules: %w", err)
	}
	return nil
}

func (r *MongoActiveRuleIndex) Search(ctx context.Context, query IndexQuery) ([]ActiveRule, error) {
	filter := bson.M{"profile_key": query.ProfileKey}
	if sev, ok := query.Severity.Get(); ok {
		filter["severity"] = string(sev)
	}

	opts := options.Find().SetSort(bson.D{{Key: "rule_key", Value: 1}})
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search active rules: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []activeRuleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode active rules: %w", err)
	}

	out := make([]ActiveRule, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toActiveRule())
	}
	return out, nil
}

// DeleteProfile removes every document of profileKey.
func (r *MongoActiveRuleIndex) DeleteProfile(ctx context.Context, profileKey string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"profile_key": profileKey})
	if err != nil {
		return 0, fmt.Errorf("failed to delete profile documents: %w", err)
	}
	return res.DeletedCount, nil
}
