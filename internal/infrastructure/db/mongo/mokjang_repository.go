package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

const mokjangsCollection = "mokjangs"

type MokjangRepository struct {
	coll *mongo.Collection
}

func NewMokjangRepository(db *mongo.Database) *MokjangRepository {
	return &MokjangRepository{coll: db.Collection(mokjangsCollection)}
}

type mongoMokjang struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	TeacherID string             `bson:"teacher_id"`
	CreatedAt int64              `bson:"created_at"`
	UpdatedAt int64              `bson:"updated_at"`
}

func (mm mongoMokjang) toDomain() *domain.Mokjang {
	return &domain.Mokjang{
		ID:        mm.ID.Hex(),
		Name:      mm.Name,
		TeacherID: mm.TeacherID,
		CreatedAt: unixToTime(mm.CreatedAt),
		UpdatedAt: unixToTime(mm.UpdatedAt),
	}
}

func (r *MokjangRepository) Create(ctx context.Context, m *domain.Mokjang) (*domain.Mokjang, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoMokjang{
		ID:        primitive.NewObjectID(),
		Name:      m.Name,
		TeacherID: m.TeacherID,
		CreatedAt: m.CreatedAt.Unix(),
		UpdatedAt: m.UpdatedAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert mokjang: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MokjangRepository) FindByID(ctx context.Context, id string) (*domain.Mokjang, error) {
	oid, err := objectID(id, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mm mongoMokjang
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mm); err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return mm.toDomain(), nil
}

func (r *MokjangRepository) List(ctx context.Context) ([]*domain.Mokjang, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list mokjangs: %w", err)
	}
	var docs []mongoMokjang
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mokjangs: %w", err)
	}
	out := make([]*domain.Mokjang, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MokjangRepository) Update(ctx context.Context, m *domain.Mokjang) error {
	oid, err := objectID(m.ID, domain.ErrNotFound)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":       m.Name,
		"teacher_id": m.TeacherID,
		"updated_at": m.UpdatedAt.Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update mokjang: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MokjangRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}
