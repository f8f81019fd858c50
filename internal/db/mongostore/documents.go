package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

type questionSetDoc struct {
	ID          string            `bson:"_id"`
	Title       string            `bson:"title"`
	Description string            `bson:"description,omitempty"`
	Questions   []domain.Question `bson:"questions"`
	CreatedBy   string            `bson:"created_by,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

type questionSetSummaryDoc struct {
	ID            string `bson:"_id"`
	Title         string `bson:"title"`
	QuestionCount int    `bson:"question_count"`
}

type attemptDoc struct {
	ID            string            `bson:"_id"`
	QuestionSetID string            `bson:"question_set_id"`
	UserID        string            `bson:"user_id"`
	Responses     []domain.Response `bson:"responses"`
	Score         int               `bson:"score"`
	Total         int               `bson:"total"`
	SubmittedAt   time.Time         `bson:"submitted_at"`
}

// attemptSummaryDoc is an attempt with its set joined by $lookup.
type attemptSummaryDoc struct {
	Attempt     attemptDoc `bson:",inline"`
	QuestionSet struct {
		Title       string `bson:"title"`
		Description string `bson:"description"`
	} `bson:"question_set"`
}

type userDoc struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email,omitempty"`
	Role  string `bson:"role"`
}

type snapshotDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Timeframe   string        `bson:"time_window"`
	SortBy      string        `bson:"sort_by"`
	GeneratedAt time.Time     `bson:"generated_at"`
	Entries     []byte        `bson:"entries"`
	SourceHash  string        `bson:"source_hash"`
}

func fromQuestionSet(set domain.QuestionSet) questionSetDoc {
	questions := set.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	doc := questionSetDoc{
		ID:          set.ID.String(),
		Title:       set.Title,
		Description: set.Description,
		Questions:   questions,
		CreatedAt:   set.CreatedAt,
	}
	if set.CreatedBy != uuid.Nil {
		doc.CreatedBy = set.CreatedBy.String()
	}
	return doc
}

func (d questionSetDoc) toDomain() (domain.QuestionSet, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("question set id %q: %w", d.ID, err)
	}
	set := domain.QuestionSet{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Questions:   d.Questions,
		CreatedAt:   d.CreatedAt,
	}
	if d.CreatedBy != "" {
		if set.CreatedBy, err = uuid.Parse(d.CreatedBy); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("question set %s creator %q: %w", d.ID, d.CreatedBy, err)
		}
	}
	return set, nil
}

func (d questionSetSummaryDoc) toDomain() (domain.QuestionSetSummary, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.QuestionSetSummary{}, fmt.Errorf("question set id %q: %w", d.ID, err)
	}
	return domain.QuestionSetSummary{ID: id, Title: d.Title, QuestionCount: d.QuestionCount}, nil
}

func fromAttempt(a domain.Attempt) attemptDoc {
	return attemptDoc{
		ID:            a.ID.String(),
		QuestionSetID: a.QuestionSetID.String(),
		UserID:        a.UserID.String(),
		Responses:     a.Responses,
		Score:         a.Score,
		Total:         a.Total,
		SubmittedAt:   a.SubmittedAt,
	}
}

func (d attemptDoc) toDomain() (domain.Attempt, error) {
	var ids [3]uuid.UUID
	for i, raw := range []string{d.ID, d.QuestionSetID, d.UserID} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.Attempt{}, fmt.Errorf("attempt %s id %q: %w", d.ID, raw, err)
		}
		ids[i] = id
	}
	responses := d.Responses
	if responses == nil {
		responses = []domain.Response{}
	}
	return domain.Attempt{
		ID:            ids[0],
		QuestionSetID: ids[1],
		UserID:        ids[2],
		Responses:     responses,
		Score:         d.Score,
		Total:         d.Total,
		SubmittedAt:   d.SubmittedAt.UTC(),
	}, nil
}

func (d attemptSummaryDoc) toDomain() (domain.AttemptSummary, error) {
	a, err := d.Attempt.toDomain()
	if err != nil {
		return domain.AttemptSummary{}, err
	}
	return domain.AttemptSummary{
		Attempt: a,
		QuestionSet: domain.QuestionSetRef{
			ID:          a.QuestionSetID,
			Title:       d.QuestionSet.Title,
			Description: d.QuestionSet.Description,
		},
	}, nil
}

func (d userDoc) toDomain() (domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("user id %q: %w", d.ID, err)
	}
	return domain.User{ID: id, Name: d.Name, Email: d.Email, Role: d.Role}, nil
}

func (d snapshotDoc) toDomain() domain.LeaderboardSnapshot {
	return domain.LeaderboardSnapshot{
		// Document ids are ObjectIDs; the creation second stands in for the
		// numeric id.
		ID:          d.ID.Timestamp().Unix(),
		Timeframe:   d.Timeframe,
		SortBy:      d.SortBy,
		GeneratedAt: d.GeneratedAt.UTC(),
		Entries:     d.Entries,
		SourceHash:  d.SourceHash,
	}
}

// attemptFilter translates a domain filter into a query document.
func attemptFilter(f domain.AttemptFilter) bson.D {
	filter := bson.D{}
	if f.UserID != nil {
		filter = append(filter, bson.E{Key: "user_id", Value: f.UserID.String()})
	}
	if !f.Since.IsZero() {
		filter = append(filter, bson.E{Key: "submitted_at", Value: bson.D{{Key: "$gte", Value: f.Since}}})
	}
	return filter
}

// summaryPipeline joins userID's attempts with their question sets, newest
// first. Attempts whose set is gone are dropped by the $unwind.
func summaryPipeline(userID uuid.UUID) []bson.D {
	return []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID.String()}}}},
		{{Key: "$sort", Value: bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: questionSetsCollection},
			{Key: "localField", Value: "question_set_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "question_set"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{{Key: "title", Value: 1}, {Key: "description", Value: 1}}}},
			}},
		}}},
		{{Key: "$unwind", Value: "$question_set"}},
	}
}

// listPipeline projects each set to its title and question count.
func listPipeline() []bson.D {
	return []bson.D{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "title", Value: 1},
			{Key: "question_count", Value: bson.D{{Key: "$size", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$questions", bson.A{}}},
			}}}},
		}}},
	}
}
