package quality

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ottermusic/searchservice/internal/domain"
)

const defaultMongoCollection = "source_quality"

type qualityDoc struct {
	Source    string `bson:"_id"`
	Success   int64  `bson:"success"`
	Fail      int64  `bson:"fail"`
	UpdatedAt int64  `bson:"updatedAt"`
}

// MongoStore keeps one document per source.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, dbName, collection string) *MongoStore {
	if client == nil {
		return nil
	}
	if collection == "" {
		collection = defaultMongoCollection
	}
	return &MongoStore{collection: client.Database(dbName).Collection(collection)}
}

func (s *MongoStore) Load(ctx context.Context) (map[domain.Source]Stats, error) {
	if s == nil || s.collection == nil {
		return nil, nil
	}
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []qualityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return decodeDocs(docs), nil
}

func (s *MongoStore) Save(ctx context.Context, source domain.Source, stats Stats) error {
	if s == nil || s.collection == nil {
		return nil
	}
	name := domain.NormalizeSource(string(source))
	if name == "" {
		return nil
	}
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": string(name)},
		bson.M{"$set": bson.M{
			"success":   stats.Success,
			"fail":      stats.Fail,
			"updatedAt": time.Now().UnixMilli(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Clear(ctx context.Context) error {
	if s == nil || s.collection == nil {
		return nil
	}
	_, err := s.collection.DeleteMany(ctx, bson.M{})
	return err
}

func decodeDocs(docs []qualityDoc) map[domain.Source]Stats {
	out := make(map[domain.Source]Stats, len(docs))
	for _, doc := range docs {
		name := domain.NormalizeSource(doc.Source)
		if name == "" || doc.Success < 0 || doc.Fail < 0 {
			continue
		}
		out[name] = Stats{Success: doc.Success, Fail: doc.Fail}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
