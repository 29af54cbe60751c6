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

const teachersCollection = "teachers"

type TeacherRepository struct {
	coll *mongo.Collection
}

func NewTeacherRepository(db *mongo.Database) *TeacherRepository {
	return &TeacherRepository{coll: db.Collection(teachersCollection)}
}

type mongoTeacher struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Name      string             `bson:"name"`
	Phone     string             `bson:"phone,omitempty"`
	Status    string             `bson:"status"`
	CreatedAt int64              `bson:"created_at"`
	UpdatedAt int64              `bson:"updated_at"`
}

func newMongoTeacher(t *domain.Teacher) mongoTeacher {
	return mongoTeacher{
		UserID:    t.UserID,
		Name:      t.Name,
		Phone:     t.Phone,
		Status:    t.Status.String(),
		CreatedAt: t.CreatedAt.Unix(),
		UpdatedAt: t.UpdatedAt.Unix(),
	}
}

func (mt mongoTeacher) toDomain() (*domain.Teacher, error) {
	status, err := domain.ParseApprovalStatus(mt.Status)
	if err != nil {
		return nil, fmt.Errorf("teacher %s: %w", mt.ID.Hex(), err)
	}
	return &domain.Teacher{
		ID:        mt.ID.Hex(),
		UserID:    mt.UserID,
		Name:      mt.Name,
		Phone:     mt.Phone,
		Status:    status,
		CreatedAt: unixToTime(mt.CreatedAt),
		UpdatedAt: unixToTime(mt.UpdatedAt),
	}, nil
}

func (r *TeacherRepository) Create(ctx context.Context, t *domain.Teacher) (*domain.Teacher, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newMongoTeacher(t)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: account already has a teacher profile", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("insert teacher: %w", err)
	}
	return doc.toDomain()
}

func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*domain.Teacher, error) {
	oid, err := objectID(id, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*domain.Teacher, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *TeacherRepository) List(ctx context.Context) ([]*domain.Teacher, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	var docs []mongoTeacher
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode teachers: %w", err)
	}
	out := make([]*domain.Teacher, 0, len(docs))
	for _, d := range docs {
		t, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *TeacherRepository) Update(ctx context.Context, t *domain.Teacher) error {
	oid, err := objectID(t.ID, domain.ErrNotFound)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":       t.Name,
		"phone":      t.Phone,
		"status":     t.Status.String(),
		"updated_at": t.UpdatedAt.Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *TeacherRepository) findOne(ctx context.Context, filter bson.M) (*domain.Teacher, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mt mongoTeacher
	if err := r.coll.FindOne(ctx, filter).Decode(&mt); err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return mt.toDomain()
}
