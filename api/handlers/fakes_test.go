package handlers_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/legal-case-api/api/testhelpers"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
)

// memCases is an in-memory CaseDatabase that enforces the unique case number
// index the same way mongo does
type memCases struct {
	mu      sync.Mutex
	docs    []models.Case
	updates int
	// lastUpdate is the update document of the most recent UpdateOne
	lastUpdate bson.M
}

var _ databases.CaseDatabase = (*memCases)(nil)

func idOf(filter interface{}) primitive.ObjectID {
	f, _ := filter.(bson.M)
	id, _ := f["_id"].(primitive.ObjectID)
	return id
}

func clone(c models.Case) models.Case {
	if c.ClientDetails != nil {
		cd := *c.ClientDetails
		c.ClientDetails = &cd
	}
	c.ActsSections = append([]models.ActSection(nil), c.ActsSections...)
	c.Documents = append([]models.Document(nil), c.Documents...)
	return c
}

func (m *memCases) index(id primitive.ObjectID) int {
	for i, d := range m.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (m *memCases) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(idOf(filter))
	if i < 0 {
		return nil, mongo.ErrNoDocuments
	}
	c := clone(m.docs[i])
	return &c, nil
}

func (m *memCases) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Case
	for i := len(m.docs) - 1; i >= 0; i-- {
		out = append(out, clone(m.docs[i]))
	}
	return out, nil
}

func (m *memCases) InsertOne(ctx context.Context, c models.Case) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if c.CaseNumber != "" && d.CaseNumber == c.CaseNumber {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
		}
	}
	m.docs = append(m.docs, clone(c))
	return testhelpers.InsertedID(c.ID), nil
}

func (m *memCases) ReplaceOne(ctx context.Context, filter interface{}, c models.Case) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(idOf(filter))
	if i < 0 {
		return 0, nil
	}
	m.docs[i] = clone(c)
	return 1, nil
}

func (m *memCases) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	i := m.index(idOf(filter))
	if i < 0 {
		return 0, nil
	}
	u := update.(bson.M)
	m.lastUpdate = u
	set, _ := u["$set"].(bson.M)
	d := &m.docs[i]
	if d.ClientDetails == nil {
		d.ClientDetails = &models.ClientDetails{}
	}
	if s, ok := set["caseStatus"].(models.CaseStatus); ok {
		d.CaseStatus = s
	}
	if h, ok := set["clientDetails.hearingDate"].(time.Time); ok {
		d.ClientDetails.HearingDate = &h
	}
	if unset, ok := u["$unset"].(bson.M); ok {
		if _, ok := unset["clientDetails.hearingDate"]; ok {
			d.ClientDetails.HearingDate = nil
		}
	}
	if t, ok := set["lastUpdated"].(time.Time); ok {
		d.LastUpdated = t
	}
	if t, ok := set["updatedAt"].(time.Time); ok {
		d.UpdatedAt = t
	}
	return 1, nil
}

func (m *memCases) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(idOf(filter))
	if i < 0 {
		return 0, nil
	}
	m.docs = append(m.docs[:i], m.docs[i+1:]...)
	return 1, nil
}

func (m *memCases) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (m *memCases) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// memCounter hands out sequences the way the $inc upsert does
type memCounter struct {
	mu  sync.Mutex
	seq map[string]int64
	err error
}

func (c *memCounter) Next(ctx context.Context, key string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == nil {
		c.seq = map[string]int64{}
	}
	c.seq[key]++
	return c.seq[key], nil
}

var errStorage = errors.New("storage unavailable")
