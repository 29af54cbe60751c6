package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

const studentsCollection = "students"

type StudentRepository struct {
	coll *mongo.Collection
}

func NewStudentRepository(db *mongo.Database) *StudentRepository {
	return &StudentRepository{coll: db.Collection(studentsCollection)}
}

type mongoStudent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Grade       int                `bson:"grade"`
	Gender      string             `bson:"gender,omitempty"`
	Phone       string             `bson:"phone,omitempty"`
	ParentPhone string             `bson:"parent_phone,omitempty"`
	Birthday    string             `bson:"birthday,omitempty"`
	MokjangID   string             `bson:"mokjang_id"`
	Notes       string             `bson:"notes,omitempty"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
}

func newMongoStudent(s *domain.Student) mongoStudent {
	return mongoStudent{
		Name:        s.Name,
		Grade:       s.Grade,
		Gender:      s.Gender,
		Phone:       s.Phone,
		ParentPhone: s.ParentPhone,
		Birthday:    s.Birthday,
		MokjangID:   s.MokjangID,
		Notes:       s.Notes,
		CreatedAt:   s.CreatedAt.Unix(),
		UpdatedAt:   s.UpdatedAt.Unix(),
	}
}

func (ms mongoStudent) toDomain() *domain.Student {
	return &domain.Student{
		ID:          ms.ID.Hex(),
		Name:        ms.Name,
		Grade:       ms.Grade,
		Gender:      ms.Gender,
		Phone:       ms.Phone,
		ParentPhone: ms.ParentPhone,
		Birthday:    ms.Birthday,
		MokjangID:   ms.MokjangID,
		Notes:       ms.Notes,
		CreatedAt:   unixToTime(ms.CreatedAt),
		UpdatedAt:   unixToTime(ms.UpdatedAt),
	}
}

func (r *StudentRepository) Create(ctx context.Context, s *domain.Student) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newMongoStudent(s)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*domain.Student, error) {
	oid, err := objectID(id, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoStudent
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&ms); err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return ms.toDomain(), nil
}

// List returns students sorted by name, narrowed to one mokjang when mokjangID is set.
func (r *StudentRepository) List(ctx context.Context, mokjangID string) ([]*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if mokjangID != "" {
		filter["mokjang_id"] = mokjangID
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	var docs []mongoStudent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	out := make([]*domain.Student, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *StudentRepository) Update(ctx context.Context, s *domain.Student) error {
	oid, err := objectID(s.ID, domain.ErrNotFound)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newMongoStudent(s)
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *StudentRepository) UnassignMokjang(ctx context.Context, mokjangID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateMany(ctx, bson.M{"mokjang_id": mokjangID}, bson.M{"$set": bson.M{
		"mokjang_id": "",
		"updated_at": time.Now().UTC().Unix(),
	}})
	if err != nil {
		return fmt.Errorf("unassign mokjang %s: %w", mokjangID, err)
	}
	return nil
}
