package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// indexSet lists the indexes each collection needs. Uniqueness of accounts,
// record numbers and booked appointment slots is enforced here and nowhere else.
func indexSet() map[string][]mongo.IndexModel {
	number := mongo.IndexModel{
		Keys:    bson.D{{Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("number_unique"),
	}
	bySubmitter := mongo.IndexModel{
		Keys: bson.D{{Key: "submitter", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	byStatus := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	}

	return map[string][]mongo.IndexModel{
		userName: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "nic", Value: 1}}, Options: options.Index().SetUnique(true).SetName("nic_unique")},
			{Keys: bson.D{{Key: "gsId", Value: 1}}, Options: partialUnique("gsid_unique", bson.M{"gsId": bson.M{"$type": "string"}})},
		},
		serviceName: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("code_unique")},
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
		},
		serviceRequestName: {
			number, bySubmitter, byStatus,
			{Keys: bson.D{{Key: "service", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "number", Value: "text"}, {Key: "serviceName", Value: "text"}, {Key: "purpose", Value: "text"}}},
		},
		appointmentName: {
			number, bySubmitter, byStatus,
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "timeSlot", Value: 1}}, Options: partialUnique("slot_held_unique", bson.M{"slotHeld": true})},
			{Keys: bson.D{{Key: "number", Value: "text"}, {Key: "purpose", Value: "text"}, {Key: "description", Value: "text"}}},
		},
		emergencyName: {
			number, bySubmitter, byStatus,
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "number", Value: "text"}, {Key: "description", Value: "text"}, {Key: "address", Value: "text"}}},
		},
		legalCaseName: {
			number, bySubmitter, byStatus,
			{Keys: bson.D{{Key: "number", Value: "text"}, {Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
		},
		discussionName: {
			number, byStatus,
			{Keys: bson.D{{Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}, {Key: "tags", Value: "text"}}},
		},
		replyName: {
			{Keys: bson.D{{Key: "discussion", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		locationName: {
			{Keys: bson.D{{Key: "coordinates", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "address", Value: "text"}}},
		},
		announcementName: {
			{Keys: bson.D{{Key: "startDate", Value: -1}, {Key: "endDate", Value: 1}}},
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
		},
	}
}

// partialUnique is a unique index that only covers documents matching filter.
func partialUnique(name string, filter bson.M) *options.IndexOptions {
	return options.Index().SetUnique(true).SetName(name).SetPartialFilterExpression(filter)
}

// EnsureIndexes creates every index the application relies on. It is safe to
// run repeatedly; existing indexes with the same definition are left alone.
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	for collection, idx := range indexSet() {
		if err := db.Collection(collection).CreateIndexes(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
		zap.S().Debugw("indexes ensured", "collection", collection, "count", len(idx))
	}
	return nil
}
