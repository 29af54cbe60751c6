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

const ministriesCollection = "ministries"

type MinistryRepository struct {
	coll *mongo.Collection
}

func NewMinistryRepository(db *mongo.Database) *MinistryRepository {
	return &MinistryRepository{coll: db.Collection(ministriesCollection)}
}

type mongoMinistry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	StudentIDs  []string           `bson:"student_ids"`
	TeacherIDs  []string           `bson:"teacher_ids"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
}

func (mm mongoMinistry) toDomain() *domain.Ministry {
	m := &domain.Ministry{
		ID:          mm.ID.Hex(),
		Name:        mm.Name,
		Description: mm.Description,
		StudentIDs:  mm.StudentIDs,
		TeacherIDs:  mm.TeacherIDs,
		CreatedAt:   unixToTime(mm.CreatedAt),
		UpdatedAt:   unixToTime(mm.UpdatedAt),
	}
	if m.StudentIDs == nil {
		m.StudentIDs = []string{}
	}
	if m.TeacherIDs == nil {
		m.TeacherIDs = []string{}
	}
	return m
}

// memberField maps a member kind to the array holding its ids.
func memberField(kind domain.MemberKind) (string, error) {
	switch kind {
	case domain.MemberStudent:
		return "student_ids", nil
	case domain.MemberTeacher:
		return "teacher_ids", nil
	}
	return "", fmt.Errorf("%w: member kind %q", domain.ErrInvalidInput, kind)
}

func (r *MinistryRepository) Create(ctx context.Context, m *domain.Ministry) (*domain.Ministry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoMinistry{
		ID:          primitive.NewObjectID(),
		Name:        m.Name,
		Description: m.Description,
		StudentIDs:  append([]string{}, m.StudentIDs...),
		TeacherIDs:  append([]string{}, m.TeacherIDs...),
		CreatedAt:   m.CreatedAt.Unix(),
		UpdatedAt:   m.UpdatedAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert ministry: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MinistryRepository) FindByID(ctx context.Context, id string) (*domain.Ministry, error) {
	oid, err := objectID(id, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mm mongoMinistry
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&mm); err != nil {
		return nil, notFoundOr(err, domain.ErrNotFound)
	}
	return mm.toDomain(), nil
}

func (r *MinistryRepository) List(ctx context.Context) ([]*domain.Ministry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list ministries: %w", err)
	}
	var docs []mongoMinistry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ministries: %w", err)
	}
	out := make([]*domain.Ministry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Update writes name and description only; membership changes go through
// AddMember and RemoveMember so concurrent edits do not clobber each other.
func (r *MinistryRepository) Update(ctx context.Context, m *domain.Ministry) error {
	oid, err := objectID(m.ID, domain.ErrNotFound)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":        m.Name,
		"description": m.Description,
		"updated_at":  m.UpdatedAt.Unix(),
	}})
	if err != nil {
		return fmt.Errorf("update ministry: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MinistryRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *MinistryRepository) AddMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) error {
	return r.updateMembers(ctx, id, kind, "$addToSet", memberID)
}

func (r *MinistryRepository) RemoveMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) error {
	return r.updateMembers(ctx, id, kind, "$pull", memberID)
}

func (r *MinistryRepository) RemoveMemberEverywhere(ctx context.Context, kind domain.MemberKind, memberID string) error {
	field, err := memberField(kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = r.coll.UpdateMany(ctx, bson.M{field: memberID}, bson.M{
		"$pull": bson.M{field: memberID},
		"$set":  bson.M{"updated_at": time.Now().UTC().Unix()},
	})
	if err != nil {
		return fmt.Errorf("remove %s %s from ministries: %w", kind, memberID, err)
	}
	return nil
}

func (r *MinistryRepository) updateMembers(ctx context.Context, id string, kind domain.MemberKind, op, memberID string) error {
	field, err := memberField(kind)
	if err != nil {
		return err
	}
	oid, err := objectID(id, domain.ErrNotFound)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{
		op:     bson.M{field: memberID},
		"$set": bson.M{"updated_at": time.Now().UTC().Unix()},
	})
	if err != nil {
		return fmt.Errorf("update ministry members: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
