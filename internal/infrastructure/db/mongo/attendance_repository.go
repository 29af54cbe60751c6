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

const attendanceCollection = "attendance"

type AttendanceRepository struct {
	coll *mongo.Collection
}

func NewAttendanceRepository(db *mongo.Database) *AttendanceRepository {
	return &AttendanceRepository{coll: db.Collection(attendanceCollection)}
}

type mongoAttendance struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	StudentID  string             `bson:"student_id"`
	Week       string             `bson:"week"`
	Present    bool               `bson:"present"`
	RecordedBy string             `bson:"recorded_by,omitempty"`
	UpdatedAt  int64              `bson:"updated_at"`
}

func (ma mongoAttendance) toDomain() *domain.Attendance {
	return &domain.Attendance{
		ID:         ma.ID.Hex(),
		StudentID:  ma.StudentID,
		Week:       ma.Week,
		Present:    ma.Present,
		RecordedBy: ma.RecordedBy,
		UpdatedAt:  unixToTime(ma.UpdatedAt),
	}
}

// Upsert relies on the unique (student_id, week) index so concurrent marks for
// the same week converge on one document.
func (r *AttendanceRepository) Upsert(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"student_id": a.StudentID, "week": a.Week}
	update := bson.M{"$set": bson.M{
		"present":     a.Present,
		"recorded_by": a.RecordedBy,
		"updated_at":  a.UpdatedAt.Unix(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var ma mongoAttendance
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ma); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return ma.toDomain(), nil
}

func (r *AttendanceRepository) List(ctx context.Context, from, to string) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	week := bson.M{}
	if from != "" {
		week["$gte"] = from
	}
	if to != "" {
		week["$lte"] = to
	}
	if len(week) > 0 {
		filter["week"] = week
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "week", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	var docs []mongoAttendance
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	out := make([]*domain.Attendance, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}

func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"student_id": studentID}); err != nil {
		return fmt.Errorf("delete attendance for %s: %w", studentID, err)
	}
	return nil
}
