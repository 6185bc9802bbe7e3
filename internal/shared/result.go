package shared

// InsertResult mirrors the document store's insert acknowledgement.
type InsertResult struct {
	InsertedID string
}

// UpdateResult mirrors the document store's update acknowledgement.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    string
}

// DeleteResult mirrors the document store's delete acknowledgement.
type DeleteResult struct {
	DeletedCount int64
}
