package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

const smsCollection = "sms_log"

// SMSLogRepository keeps one document per recipient of a bulk send. Message
// ids are generated by the service, so they are stored verbatim as _id.
type SMSLogRepository struct {
	coll *mongo.Collection
}

func NewSMSLogRepository(db *mongo.Database) *SMSLogRepository {
	return &SMSLogRepository{coll: db.Collection(smsCollection)}
}

type mongoSMS struct {
	ID        string `bson:"_id"`
	BatchID   string `bson:"batch_id"`
	Name      string `bson:"name"`
	Phone     string `bson:"phone"`
	Body      string `bson:"body"`
	Status    string `bson:"status"`
	Error     string `bson:"error,omitempty"`
	SentBy    string `bson:"sent_by"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func (ms mongoSMS) toDomain() *domain.SMSMessage {
	return &domain.SMSMessage{
		ID:        ms.ID,
		BatchID:   ms.BatchID,
		Name:      ms.Name,
		Phone:     ms.Phone,
		Body:      ms.Body,
		Status:    domain.SMSStatus(ms.Status),
		Error:     ms.Error,
		SentBy:    ms.SentBy,
		CreatedAt: unixToTime(ms.CreatedAt),
		UpdatedAt: unixToTime(ms.UpdatedAt),
	}
}

func (r *SMSLogRepository) InsertMany(ctx context.Context, msgs []*domain.SMSMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		docs = append(docs, mongoSMS{
			ID:        m.ID,
			BatchID:   m.BatchID,
			Name:      m.Name,
			Phone:     m.Phone,
			Body:      m.Body,
			Status:    string(m.Status),
			SentBy:    m.SentBy,
			CreatedAt: m.CreatedAt.Unix(),
			UpdatedAt: m.UpdatedAt.Unix(),
		})
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert sms batch: %w", err)
	}
	return nil
}

func (r *SMSLogRepository) UpdateStatus(ctx context.Context, id string, status domain.SMSStatus, errMsg string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     string(status),
		"error":      errMsg,
		"updated_at": time.Now().UTC().Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update sms status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the most recent messages first.
func (r *SMSLogRepository) List(ctx context.Context, limit int) ([]*domain.SMSMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sms log: %w", err)
	}
	var docs []mongoSMS
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sms log: %w", err)
	}
	out := make([]*domain.SMSMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
