package models

// Counter holds the structure for the counters collection in mongo
type Counter struct {
	Name string `json:"name" bson:"name"`
	Seq  int64  `json:"seq" bson:"seq"`
}
