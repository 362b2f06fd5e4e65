package models

// Counter holds the structure for the counters collection. One document per scope.
type Counter struct {
	ID  string `json:"_id" bson:"_id"`
	Seq int64  `json:"seq" bson:"seq"`
}
