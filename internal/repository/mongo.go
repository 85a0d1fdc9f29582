package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chucky-1/moods/internal/model"
)

const moodsCollection = "moods"

type Mongo struct {
	cli      *mongo.Client
	database string
}

func NewMongo(cli *mongo.Client, database string) *Mongo {
	return &Mongo{
		cli:      cli,
		database: database,
	}
}

func (m *Mongo) collection() *mongo.Collection {
	return m.cli.Database(m.database).Collection(moodsCollection)
}

func (m *Mongo) LoadAll(ctx context.Context) ([]model.Entry, error) {
	cursor, err := m.collection().Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo couldn't Find in LoadAll method: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logrus.Errorf("mongo couldn't close cursor in LoadAll method: %v", err)
		}
	}(cursor, ctx)

	entries := make([]model.Entry, 0)
	for cursor.Next(ctx) {
		var entry model.Entry
		if err = cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("mongo couldn't Decode in LoadAll method: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor err in LoadAll method: %w", err)
	}
	return entries, nil
}

func (m *Mongo) Append(ctx context.Context, entry model.Entry) error {
	_, err := m.collection().InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("mongo couldn't InsertOne in Append method: %w", err)
	}
	return nil
}

func (m *Mongo) Remove(ctx context.Context, id int64) error {
	_, err := m.collection().DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return fmt.Errorf("mongo couldn't DeleteOne in Remove method: %w", err)
	}
	return nil
}

// Watch follows a change stream, so the server must run as a replica set
func (m *Mongo) Watch(ctx context.Context, onChange func()) error {
	stream, err := m.collection().Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return fmt.Errorf("mongo couldn't Watch in Watch method: %w", err)
	}
	defer func(stream *mongo.ChangeStream) {
		if err := stream.Close(context.Background()); err != nil {
			logrus.Errorf("mongo couldn't close change stream: %v", err)
		}
	}(stream)

	for stream.Next(ctx) {
		onChange()
	}
	if ctx.Err() != nil {
		return nil
	}
	if err = stream.Err(); err != nil {
		return fmt.Errorf("change stream err in Watch method: %w", err)
	}
	return nil
}
